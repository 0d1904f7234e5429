// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/model"
	"github.com/jeranaias/lmchat/internal/session"
)

// modelsTimeout bounds the model list request.
const modelsTimeout = 10 * time.Second

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case MessageAddedMsg:
		m.upsert(msg.Message)
		if msg.Message.IsAssistant() && m.busy {
			m.streamingID = msg.Message.ID
			m.streamOut = ""
			m.throttle.Reset()
		}
		m.refresh()
		return m, nil

	case MessageUpdatedMsg:
		m.setContent(msg.ID, msg.Content)
		if msg.ID == m.streamingID {
			out, rendered, err := m.throttle.Update(msg.Content)
			if err != nil {
				m.logger.Debug("RENDER_FAILED", zap.Error(err))
			}
			if rendered {
				m.streamOut = out
			} else if !m.tickPending {
				m.tickPending = true
				cmds = append(cmds, m.renderTickCmd())
			}
		}
		m.refresh()
		return m, tea.Batch(cmds...)

	case renderTickMsg:
		m.tickPending = false
		if m.streamingID >= 0 {
			out, err := m.throttle.Flush(m.content(m.streamingID))
			if err != nil {
				m.logger.Debug("RENDER_FAILED", zap.Error(err))
			}
			m.streamOut = out
			m.refresh()
		}
		return m, nil

	case SubmitDoneMsg:
		m.finishSubmit(msg)
		m.refresh()
		return m, nil

	case ModelsLoadedMsg:
		if msg.Err != nil {
			m.syncMessages()
			m.setError("Could not load models")
			m.refresh()
			return m, nil
		}
		m.models = msg.Models
		if m.modelName == "" && len(m.models) > 0 {
			m.modelName = m.models[0]
		}
		m.setStatus(fmt.Sprintf("%d models available", len(m.models)))
		return m, nil

	case DocumentsLoadedMsg:
		for _, doc := range msg.Docs {
			m.ctrl.AddDocument(doc.Name, doc.Content, nil)
			if m.watcher != nil && doc.Path != "" {
				if err := m.watcher.Add(doc.Path); err != nil {
					m.logger.Warn("WATCH_FAILED", zap.String("path", doc.Path), zap.Error(err))
				}
			}
		}
		m.syncMessages()
		if msg.Err != nil {
			m.setError(firstLine(msg.Err.Error()))
		} else {
			m.setStatus(fmt.Sprintf("%d document(s) attached", len(m.ctrl.Documents())))
		}
		m.refresh()
		return m, nil

	case DocumentChangedMsg:
		if m.ctrl.UpdateDocument(msg.Doc.Name, msg.Doc.Content) {
			m.setStatus("Reloaded: " + msg.Doc.Name)
		}
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			m.setError("Export failed: " + msg.Err.Error())
		} else {
			m.setStatus("Saved " + msg.Path)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.busy {
			m.ctrl.Cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.busy && m.ctrl.Cancel() {
			m.setStatus("Stopping...")
		}
		if m.showHelp {
			m.showHelp = false
			m.resize(m.width, m.height)
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		if m.ready {
			m.resize(m.width, m.height)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles Enter. It does nothing while a response is generating.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}
	if m.modelName == "" {
		m.setError("No model selected; use /models or /model <name>")
		return m, nil
	}

	m.busy = true
	m.setStatus("")
	return m, tea.Batch(m.submitCmd(text), m.spinner.Tick)
}

// =============================================================================
// GENERATION
// =============================================================================

// observer forwards transcript changes to the program in order.
func (m Model) observer() session.Observer {
	s := m.sender
	return session.ObserverFuncs{
		OnAdded:   func(msg model.Message) { s.Send(MessageAddedMsg{Message: msg}) },
		OnUpdated: func(id int, content string) { s.Send(MessageUpdatedMsg{ID: id, Content: content}) },
	}
}

func (m Model) submitCmd(input string) tea.Cmd {
	ctrl, modelName, obs := m.ctrl, m.modelName, m.observer()
	return func() tea.Msg {
		out, err := ctrl.Submit(context.Background(), modelName, input, obs)
		return SubmitDoneMsg{Outcome: out, Err: err}
	}
}

func (m *Model) finishSubmit(msg SubmitDoneMsg) {
	m.busy = false
	m.streamingID = -1
	m.streamOut = ""
	m.tickPending = false
	m.throttle.Reset()
	m.syncMessages()

	out := msg.Outcome
	switch {
	case errors.Is(msg.Err, session.ErrBusy):
		m.setError("A response is already being generated")
	case msg.Err != nil:
		m.setError(firstLine(msg.Err.Error()))
	case out.Cancelled:
		m.setStatus("Generation stopped")
	default:
		r := out.Result
		status := fmt.Sprintf("%d chunks in %s", r.Deltas, r.Elapsed.Round(10*time.Millisecond))
		if r.ParseFailures > 0 {
			status += fmt.Sprintf(" (%d malformed lines skipped)", r.ParseFailures)
		}
		m.setStatus(status)
	}
}

func (m Model) renderTickCmd() tea.Cmd {
	return tea.Tick(m.frame, func(time.Time) tea.Msg { return renderTickMsg{} })
}

func (m Model) loadModelsCmd() tea.Cmd {
	ctrl, obs := m.ctrl, m.observer()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), modelsTimeout)
		defer cancel()
		models, err := ctrl.LoadModels(ctx, obs)
		return ModelsLoadedMsg{Models: models, Err: err}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
