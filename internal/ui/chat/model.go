// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/documents"
	"github.com/jeranaias/lmchat/internal/model"
	"github.com/jeranaias/lmchat/internal/render"
	"github.com/jeranaias/lmchat/internal/session"
	"github.com/jeranaias/lmchat/internal/ui/styles"
)

// =============================================================================
// PROGRAM SENDER
// =============================================================================

// sender forwards messages from background goroutines to the program.
// Every copy of Model shares one sender.
type sender struct {
	mu      sync.RWMutex
	program *tea.Program
	fn      func(tea.Msg)
}

func (s *sender) Send(msg tea.Msg) {
	s.mu.RLock()
	p, fn := s.program, s.fn
	s.mu.RUnlock()

	switch {
	case p != nil:
		p.Send(msg)
	case fn != nil:
		fn(msg)
	}
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures the chat screen.
type Options struct {
	Controller *session.Controller

	// Renderer renders finished assistant messages. Nil shows raw text.
	Renderer render.Renderer

	// Loader reads files for /upload. Nil uses documents.NewLoader().
	Loader *documents.Loader

	// Model is the initial model; empty picks the first listed one.
	Model string

	ExportDir string
	Offline   bool
	RenderFPS int
	Logger    *zap.Logger
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctrl     *session.Controller
	renderer render.Renderer
	throttle *render.Throttle
	loader   *documents.Loader
	watcher  *documents.Watcher
	logger   *zap.Logger
	sender   *sender

	theme *styles.Theme
	keys  KeyMap

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Transcript mirror, in id order.
	messages []model.Message
	rendered map[int]string

	busy        bool
	streamingID int
	streamOut   string
	tickPending bool
	frame       time.Duration

	modelName string
	models    []string
	exportDir string
	offline   bool

	status    string
	statusErr bool
	showHelp  bool

	width  int
	height int
	ready  bool
}

// New creates a chat model.
func New(opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message, a URL, or /help"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.Focus()
	// Enter submits; the newline binding inserts.
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := styles.NewTheme()
	sp.Style = theme.Spinner

	r := opts.Renderer
	if r == nil {
		r = render.Plain
	}
	loader := opts.Loader
	if loader == nil {
		loader = documents.NewLoader()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fps := opts.RenderFPS
	if fps <= 0 {
		fps = render.DefaultFPS
	}
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	return Model{
		ctrl:        opts.Controller,
		renderer:    r,
		throttle:    render.NewThrottle(r, fps),
		loader:      loader,
		logger:      logger.Named("tui"),
		sender:      &sender{},
		theme:       theme,
		keys:        DefaultKeyMap(),
		viewport:    viewport.New(80, 20),
		input:       ta,
		spinner:     sp,
		rendered:    make(map[int]string),
		streamingID: -1,
		frame:       time.Second / time.Duration(fps),
		modelName:   opts.Model,
		exportDir:   exportDir,
		offline:     opts.Offline,
	}
}

// Attach connects the model to its running program. Call before Run.
func (m Model) Attach(p *tea.Program) {
	m.sender.mu.Lock()
	defer m.sender.mu.Unlock()
	m.sender.program = p
}

// WithWatcher enables reloading of uploaded files when they change.
func (m Model) WithWatcher(w *documents.Watcher) Model {
	m.watcher = w
	return m
}

// DocumentChanged is the watcher callback. It may run on any goroutine.
func (m Model) DocumentChanged(doc documents.Document) {
	m.sender.Send(DocumentChangedMsg{Doc: doc})
}

// Init loads the model list and starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.loadModelsCmd())
}

// ModelName returns the selected model.
func (m Model) ModelName() string { return m.modelName }

// Busy reports whether a generation is running.
func (m Model) Busy() bool { return m.busy }

// Messages returns the displayed transcript.
func (m Model) Messages() []model.Message { return m.messages }

// =============================================================================
// TRANSCRIPT MIRROR
// =============================================================================

// upsert inserts msg or replaces the message with the same id.
func (m *Model) upsert(msg model.Message) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].ID == msg.ID {
			m.messages[i] = msg
			delete(m.rendered, msg.ID)
			return
		}
		if m.messages[i].ID < msg.ID {
			break
		}
	}
	m.messages = append(m.messages, msg)
}

func (m *Model) setContent(id int, content string) bool {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].ID == id {
			m.messages[i].Content = content
			delete(m.rendered, id)
			return true
		}
	}
	return false
}

func (m *Model) content(id int) string {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].ID == id {
			return m.messages[i].Content
		}
	}
	return ""
}

// syncMessages replaces the mirror with the controller's transcript.
func (m *Model) syncMessages() {
	m.messages = m.ctrl.Messages()
	m.rendered = make(map[int]string)
}

func (m *Model) setStatus(text string) {
	m.status, m.statusErr = text, false
}

func (m *Model) setError(text string) {
	m.status, m.statusErr = text, true
}
