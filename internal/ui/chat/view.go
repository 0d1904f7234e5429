// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/lmchat/internal/model"
	"github.com/jeranaias/lmchat/internal/offline"
	"github.com/jeranaias/lmchat/internal/util"
)

const (
	headerHeight = 1
	statusHeight = 1
	inputHeight  = 3
	// Border of the input box.
	inputChrome = 2
	minViewport = 3
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.ready = true

	m.input.SetWidth(max(width-inputChrome, 10))

	vh := height - headerHeight - statusHeight - inputHeight - inputChrome
	if m.showHelp {
		vh--
	}
	m.viewport.Width = width
	m.viewport.Height = max(vh, minViewport)
}

// refresh rebuilds the viewport content, following the bottom when the
// user had not scrolled away from it.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom || m.busy {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "\n  Starting..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')

	inputStyle := m.theme.Input
	if m.busy {
		inputStyle = m.theme.InputBusy
	}
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteByte('\n')
	b.WriteString(m.renderStatus())
	if m.showHelp {
		b.WriteByte('\n')
		b.WriteString(m.renderHelp())
	}
	return b.String()
}

func (m Model) renderHeader() string {
	name := m.modelName
	if name == "" {
		name = "no model"
	}
	parts := []string{
		m.theme.Header.Render("lmchat"),
		m.theme.HeaderModel.Render(name),
	}
	if m.offline {
		badge := offline.StatusBadge()
		if badge == "" {
			badge = "[OFFLINE]"
		}
		parts = append(parts, m.theme.Offline.Render(badge))
	}
	if m.busy {
		parts = append(parts, m.spinner.View())
	}
	return strings.Join(parts, " ")
}

func (m Model) renderStatus() string {
	text := m.status
	if text == "" && m.busy {
		text = "Generating... (Esc to stop)"
	}
	if m.width > 0 {
		text = util.TruncateWidth(text, m.width-2)
	}
	if m.statusErr {
		return m.theme.StatusError.Render(text)
	}
	return m.theme.StatusBar.Render(text)
}

func (m Model) renderHelp() string {
	bindings := m.keys.ShortHelp()
	parts := make([]string, 0, len(bindings)+1)
	for _, k := range bindings {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	parts = append(parts, "/help for commands")
	return m.theme.Help.Render(strings.Join(parts, " • "))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) renderTranscript() string {
	if len(m.messages) == 0 {
		return m.theme.SystemText.Render("Ask anything. Paste a URL to add a webpage, /upload to add files.")
	}

	blocks := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		blocks = append(blocks, m.renderMessage(msg))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderMessage(msg model.Message) string {
	label := m.theme.RoleLabel(msg.Role).Render(msg.Role.DisplayName()) +
		" " + m.theme.Timestamp.Render(msg.FormattedTime())

	var body string
	switch {
	case msg.IsSystem():
		body = m.theme.SystemText.Render(msg.Content)
	case msg.Failed:
		body = m.theme.FailedText.Render(msg.Content)
	case msg.IsAssistant() && msg.ID == m.streamingID:
		body = m.streamOut
		if body == "" {
			body = m.spinner.View()
		}
	case msg.IsAssistant():
		body = m.renderCached(msg)
		if msg.Cancelled {
			body += "\n" + m.theme.CancelledNote.Render("(stopped)")
		}
	default:
		body = msg.Content
	}
	return label + "\n" + strings.TrimRight(body, "\n")
}

// renderCached renders an assistant message once per content change.
func (m *Model) renderCached(msg model.Message) string {
	if out, ok := m.rendered[msg.ID]; ok {
		return out
	}
	out, err := m.renderer.Render(msg.Content)
	if err != nil {
		out = msg.Content
	}
	m.rendered[msg.ID] = out
	return out
}
