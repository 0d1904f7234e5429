// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL is where LM Studio serves its OpenAI-compatible API.
	DefaultBaseURL = "http://127.0.0.1:1234"

	// DefaultTimeout bounds non-streaming requests such as model listing.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is read for the message.
	maxErrorBody = 2048
)

// ClientConfig holds configuration options for the client.
type ClientConfig struct {
	// BaseURL is the server root, without the /v1 suffix (default: http://127.0.0.1:1234)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// StreamTimeout is a hard limit on a whole streaming completion.
	// Zero means no limit; the caller's context still applies.
	StreamTimeout time.Duration

	// DefaultModel is used when Stream is called with an empty model.
	DefaultModel string

	// HTTPClient overrides the transport. Its Timeout is ignored for streams.
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an OpenAI-compatible local inference server.
// The Client is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	base := config.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	httpClient := *base
	httpClient.Timeout = config.Timeout
	// Streams are bounded by context, not by http.Client.Timeout, which
	// would also cut off the body mid-read.
	streamClient := *base
	streamClient.Timeout = 0

	return &Client{
		config:       config,
		httpClient:   &httpClient,
		streamClient: &streamClient,
		logger:       zap.NewNop(),
	}
}

// WithLogger sets the logger used for stream diagnostics.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger.Named("lmstudio")
	}
	return c
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// DefaultModel returns the configured fallback model, possibly "".
func (c *Client) DefaultModel() string {
	return c.config.DefaultModel
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that the server is reachable.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/models", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeRequestFailed,
			Message: "unexpected response from server",
			Status:  resp.StatusCode,
		}
	}
	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels returns the usable model ids, in server order. Entries whose id
// is not a non-empty string are skipped. An empty or malformed list, or one
// with no usable ids, is ErrNoModelsFound.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	url := c.config.BaseURL + "/v1/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("MODELS_FETCH", zap.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeRequestFailed,
			Message: "failed to list models" + readErrorDetail(resp.Body),
			Status:  resp.StatusCode,
		}
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeNoModels, Message: "malformed model list", Cause: err}
	}
	if len(result.Data) == 0 {
		return nil, ErrNoModelsFound
	}

	ids := make([]string, 0, len(result.Data))
	for i, entry := range result.Data {
		var id string
		if err := json.Unmarshal(entry.ID, &id); err != nil || id == "" {
			c.logger.Warn("MODELS_SKIP_INVALID", zap.Int("index", i), zap.ByteString("id", entry.ID))
			continue
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, &ClientError{Type: ErrTypeNoModels, Message: "no valid model ids in response"}
	}

	c.logger.Debug("MODELS_LOADED", zap.Int("count", len(ids)))
	return ids, nil
}

// =============================================================================
// CHAT COMPLETION
// =============================================================================

// Stream sends a single streaming completion request for prompt and returns
// the delta sequence. A non-2xx status fails immediately with
// ErrTypeRequestFailed carrying the status; no Stream is returned, so no
// delta can be observed. Nothing is retried.
func (c *Client) Stream(ctx context.Context, model, prompt string) (*Stream, error) {
	if model == "" {
		model = c.config.DefaultModel
	}
	if model == "" {
		return nil, ErrEmptyModel
	}

	body, err := json.Marshal(NewCompletionRequest(model, prompt))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to marshal request", Cause: err}
	}

	streamCtx, release := context.WithCancel(ctx)
	if c.config.StreamTimeout > 0 {
		release()
		streamCtx, release = context.WithTimeout(ctx, c.config.StreamTimeout)
	}

	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		release()
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	s := newStream(ctx, streamCtx, release, model, c.logger)
	c.logger.Debug("STREAM_START", zap.String("model", model), zap.Int("prompt_bytes", len(prompt)))

	resp, err := c.streamClient.Do(req)
	if err != nil {
		release()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transportError(streamCtx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readErrorDetail(resp.Body)
		resp.Body.Close()
		release()
		c.logger.Warn("STREAM_REQUEST_FAILED", zap.String("model", model), zap.Int("status", resp.StatusCode))
		return nil, &ClientError{
			Type:    ErrTypeRequestFailed,
			Message: "completion request failed" + detail,
			Status:  resp.StatusCode,
		}
	}

	s.attach(resp.Body)
	return s, nil
}

// Complete streams prompt to completion and returns the full response,
// calling onDelta for each fragment when it is non-nil.
func (c *Client) Complete(ctx context.Context, model, prompt string, onDelta func(Delta)) (Result, error) {
	s, err := c.Stream(ctx, model, prompt)
	if err != nil {
		return Result{Model: model, State: StateFailed, Err: err}, err
	}
	return Collect(s, onDelta)
}

// =============================================================================
// HELPERS
// =============================================================================

func transportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: "cannot reach inference server", Cause: err}
}

// readErrorDetail extracts a short message from an error response body.
func readErrorDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var api APIError
		if json.Unmarshal(body.Error, &api) == nil && api.Message != "" {
			return ": " + api.Message
		}
		var msg string
		if json.Unmarshal(body.Error, &msg) == nil && msg != "" {
			return ": " + msg
		}
	}
	return ": " + truncate(strings.TrimSpace(string(raw)), maxLoggedPayload)
}
