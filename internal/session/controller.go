// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/lmstudio"
	"github.com/jeranaias/lmchat/internal/model"
	"github.com/jeranaias/lmchat/internal/prompt"
	"github.com/jeranaias/lmchat/internal/webpage"
)

// =============================================================================
// USER-VISIBLE TEXT
// =============================================================================

const (
	MsgFetching         = "Fetching webpage content..."
	MsgFetched          = "Webpage content fetched successfully: %s"
	MsgFetchFailed      = "Failed to fetch webpage: %v"
	MsgUploaded         = "Uploaded: %s"
	MsgGenerationFailed = "Sorry, there was an error generating the response."
	MsgModelsFailed     = "Error loading models from LM Studio: %v"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned when a generation is already in flight.
	ErrBusy = errors.New("a response is already being generated")

	// ErrEmptyInput is returned for blank input; nothing is recorded.
	ErrEmptyInput = errors.New("message is empty")

	// ErrGenerationFailed wraps the cause of a failed generation. The
	// transcript already shows MsgGenerationFailed when it is returned.
	ErrGenerationFailed = errors.New("generation failed")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Completer lists models and opens streaming completions.
// *lmstudio.Client satisfies it.
type Completer interface {
	ListModels(ctx context.Context) ([]string, error)
	Stream(ctx context.Context, model, prompt string) (*lmstudio.Stream, error)
}

// PageFetcher retrieves webpage text. *webpage.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Observer receives transcript changes in the order they happen. Calls come
// from the goroutine running the operation.
type Observer interface {
	MessageAdded(msg model.Message)
	MessageUpdated(id int, content string)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	OnAdded   func(model.Message)
	OnUpdated func(id int, content string)
}

func (o ObserverFuncs) MessageAdded(msg model.Message) {
	if o.OnAdded != nil {
		o.OnAdded(msg)
	}
}

func (o ObserverFuncs) MessageUpdated(id int, content string) {
	if o.OnUpdated != nil {
		o.OnUpdated(id, content)
	}
}

// Outcome describes one Submit.
type Outcome struct {
	UserID      int
	AssistantID int // -1 when no assistant message was created
	Result      lmstudio.Result
	PromptBytes int
	Cancelled   bool
	Err         error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns one chat session. It is safe for concurrent use; at most
// one generation runs at a time.
type Controller struct {
	conv    *model.Conversation
	docs    *prompt.Store
	pages   *prompt.Store
	client  Completer
	fetcher PageFetcher
	logger  *zap.Logger

	busy      atomic.Bool
	cancelMgr *cancelManager
}

// NewController creates a session. fetcher may be nil, which disables URL
// fetching.
func NewController(client Completer, fetcher PageFetcher) *Controller {
	return &Controller{
		conv:      model.NewConversation(),
		docs:      prompt.NewStore(),
		pages:     prompt.NewStore(),
		client:    client,
		fetcher:   fetcher,
		logger:    zap.NewNop(),
		cancelMgr: newCancelManager(),
	}
}

// WithLogger sets the logger. The session id is attached to every entry.
func (c *Controller) WithLogger(logger *zap.Logger) *Controller {
	if logger != nil {
		c.logger = logger.Named("session").With(zap.String("session", c.conv.ID))
	}
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.conv.ID }

// CreatedAt returns when the session started.
func (c *Controller) CreatedAt() time.Time { return c.conv.CreatedAt }

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []model.Message { return c.conv.Messages() }

// Documents returns the stored document names in upload order.
func (c *Controller) Documents() []string { return c.docs.Keys() }

// WebPages returns the stored webpage URLs in fetch order.
func (c *Controller) WebPages() []string { return c.pages.Keys() }

// Busy reports whether a generation is in flight.
func (c *Controller) Busy() bool { return c.busy.Load() }

// Cancel stops the active generation. It reports whether one was running.
func (c *Controller) Cancel() bool {
	if c.cancelMgr.cancel() {
		c.logger.Info("GENERATE_CANCEL_REQUESTED")
		return true
	}
	return false
}

func (c *Controller) add(obs Observer, role model.Role, content string) model.Message {
	msg := c.conv.Add(role, content)
	if obs != nil {
		obs.MessageAdded(msg)
	}
	return msg
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit runs the full flow for one user input. Failures of the webpage
// fetch and of generation are reported in the transcript. The returned
// error is ErrEmptyInput, ErrBusy, or wraps ErrGenerationFailed.
// Cancellation is not an error: Outcome.Cancelled is set instead.
func (c *Controller) Submit(ctx context.Context, modelID, input string, obs Observer) (Outcome, error) {
	message := strings.TrimSpace(input)
	if message == "" {
		return Outcome{AssistantID: -1}, ErrEmptyInput
	}
	if !c.busy.CompareAndSwap(false, true) {
		return Outcome{AssistantID: -1}, ErrBusy
	}
	defer c.busy.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	c.cancelMgr.set(cancel)
	defer c.cancelMgr.clear()

	if obs == nil {
		obs = ObserverFuncs{}
	}

	user := c.add(obs, model.RoleUser, message)
	out := Outcome{UserID: user.ID, AssistantID: -1}

	if c.fetcher != nil && webpage.IsValidURL(message) {
		c.fetchPage(ctx, message, obs)
		if ctx.Err() != nil {
			out.Cancelled = true
			return out, nil
		}
	}

	docs, pages := c.docs.Snapshot(), c.pages.Snapshot()
	full := prompt.Assemble(docs, pages, message)
	out.PromptBytes = len(full)

	assistant := c.add(obs, model.RoleAssistant, "")
	out.AssistantID = assistant.ID

	c.logger.Info("GENERATE_START",
		zap.String("model", modelID),
		zap.Int("documents", len(docs)),
		zap.Int("webpages", len(pages)),
		zap.Int("prompt_bytes", len(full)),
	)

	result, err := c.generate(ctx, modelID, full, assistant.ID, obs)
	out.Result = result

	switch {
	case err == nil:
		c.logger.Info("GENERATE_DONE",
			zap.String("model", modelID),
			zap.Int("deltas", result.Deltas),
			zap.Int("parse_failures", result.ParseFailures),
			zap.Duration("elapsed", result.Elapsed),
		)
		return out, nil

	case result.State == lmstudio.StateCancelled || errors.Is(err, context.Canceled):
		_ = c.conv.MarkCancelled(assistant.ID)
		c.logger.Info("GENERATE_CANCELLED", zap.Int("deltas", result.Deltas))
		out.Cancelled = true
		return out, nil

	default:
		_ = c.conv.MarkFailed(assistant.ID, MsgGenerationFailed)
		obs.MessageUpdated(assistant.ID, MsgGenerationFailed)
		c.logger.Error("GENERATE_FAILED",
			zap.String("model", modelID),
			zap.Int("status", lmstudio.StatusCode(err)),
			zap.Error(err),
		)
		out.Err = err
		return out, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
}

// generate streams into message id, updating the transcript and the
// observer with the cumulative text after each delta.
func (c *Controller) generate(ctx context.Context, modelID, full string, id int, obs Observer) (lmstudio.Result, error) {
	stream, err := c.client.Stream(ctx, modelID, full)
	if err != nil {
		state := lmstudio.StateFailed
		if ctx.Err() != nil {
			state = lmstudio.StateCancelled
		}
		return lmstudio.Result{Model: modelID, State: state, Err: err}, err
	}

	var acc strings.Builder
	return lmstudio.Collect(stream, func(d lmstudio.Delta) {
		acc.WriteString(d.Content)
		content := acc.String()
		_ = c.conv.SetContent(id, content)
		obs.MessageUpdated(id, content)
	})
}

// =============================================================================
// DOCUMENTS AND WEBPAGES
// =============================================================================

// fetchPage fetches url into the webpage store, reporting through system
// messages.
func (c *Controller) fetchPage(ctx context.Context, url string, obs Observer) error {
	c.add(obs, model.RoleSystem, MsgFetching)

	content, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		c.logger.Warn("WEBPAGE_FAILED", zap.String("url", url), zap.Error(err))
		c.add(obs, model.RoleSystem, fmt.Sprintf(MsgFetchFailed, err))
		return err
	}

	c.pages.Set(url, content)
	c.add(obs, model.RoleSystem, fmt.Sprintf(MsgFetched, url))
	return nil
}

// AddWebPage fetches url and stores it without generating a response.
func (c *Controller) AddWebPage(ctx context.Context, url string, obs Observer) error {
	if c.fetcher == nil {
		return fmt.Errorf("%w: no fetcher configured", webpage.ErrFetchFailed)
	}
	if !webpage.IsValidURL(url) {
		return fmt.Errorf("%w: invalid URL %q", webpage.ErrFetchFailed, url)
	}
	return c.fetchPage(ctx, url, obs)
}

// AddDocument stores a document, replacing any with the same name, and
// records an upload message.
func (c *Controller) AddDocument(name, content string, obs Observer) model.Message {
	replaced := c.docs.Set(name, content)
	c.logger.Info("DOCUMENT_ADDED",
		zap.String("name", name),
		zap.Int("bytes", len(content)),
		zap.Bool("replaced", replaced),
	)
	return c.add(obs, model.RoleSystem, fmt.Sprintf(MsgUploaded, name))
}

// UpdateDocument replaces the content of a stored document silently. It
// reports false when name is not stored.
func (c *Controller) UpdateDocument(name, content string) bool {
	if _, ok := c.docs.Get(name); !ok {
		return false
	}
	c.docs.Set(name, content)
	c.logger.Debug("DOCUMENT_UPDATED", zap.String("name", name), zap.Int("bytes", len(content)))
	return true
}

// RemoveDocument deletes a stored document.
func (c *Controller) RemoveDocument(name string) bool {
	return c.docs.Delete(name)
}

// =============================================================================
// MODELS AND RESET
// =============================================================================

// LoadModels lists the server's models. On failure a system message is
// recorded and the error returned.
func (c *Controller) LoadModels(ctx context.Context, obs Observer) ([]string, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		c.add(obs, model.RoleSystem, fmt.Sprintf(MsgModelsFailed, err))
		return nil, err
	}
	return models, nil
}

// ListModels lists the server's models without touching the transcript.
func (c *Controller) ListModels(ctx context.Context) ([]string, error) {
	models, err := c.client.ListModels(ctx)
	if err != nil {
		c.logger.Warn("MODELS_FAILED", zap.Error(err))
		return nil, err
	}
	return models, nil
}

// Reset clears the transcript, documents and webpages. It fails with
// ErrBusy during a generation.
func (c *Controller) Reset() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	c.conv.Clear()
	c.docs.Clear()
	c.pages.Clear()
	c.logger.Info("SESSION_RESET")
	return nil
}
