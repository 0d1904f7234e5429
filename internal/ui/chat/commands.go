// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lmchat/internal/export"
)

// uploadTimeout bounds one /upload.
const uploadTimeout = 30 * time.Second

// runCommand executes a slash command typed into the input.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/help", "/?":
		m.showHelp = true
		if m.ready {
			m.resize(m.width, m.height)
		}
		m.setStatus("/model [name] /models /upload <path>... /remove <name> /docs /save [md|json|html] /clear /quit")
		return m, nil

	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/models":
		m.setStatus("Loading models...")
		return m, m.loadModelsCmd()

	case "/model":
		return m.selectModel(args)

	case "/upload":
		if len(args) == 0 {
			m.setError("Usage: /upload <path>...")
			return m, nil
		}
		m.setStatus("Loading files...")
		return m, m.uploadCmd(args)

	case "/remove":
		if len(args) == 0 {
			m.setError("Usage: /remove <name>")
			return m, nil
		}
		doc := strings.Join(args, " ")
		if m.ctrl.RemoveDocument(doc) {
			m.setStatus("Removed " + doc)
		} else {
			m.setError("No document named " + doc)
		}
		return m, nil

	case "/docs":
		docs, pages := m.ctrl.Documents(), m.ctrl.WebPages()
		if len(docs)+len(pages) == 0 {
			m.setStatus("No documents or webpages attached")
			return m, nil
		}
		parts := make([]string, 0, 2)
		if len(docs) > 0 {
			parts = append(parts, "docs: "+strings.Join(docs, ", "))
		}
		if len(pages) > 0 {
			parts = append(parts, "pages: "+strings.Join(pages, ", "))
		}
		m.setStatus(strings.Join(parts, " | "))
		return m, nil

	case "/save", "/export":
		format := ""
		if len(args) > 0 {
			format = args[0]
		}
		return m, m.exportCmd(format)

	case "/clear":
		if err := m.ctrl.Reset(); err != nil {
			m.setError("Cannot clear while a response is generating")
			return m, nil
		}
		m.syncMessages()
		m.setStatus("Conversation cleared")
		m.refresh()
		return m, nil
	}

	m.setError(fmt.Sprintf("Unknown command %s; try /help", name))
	return m, nil
}

func (m Model) selectModel(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		if m.modelName == "" {
			m.setStatus("No model selected")
		} else {
			m.setStatus("Model: " + m.modelName)
		}
		return m, nil
	}

	want := args[0]
	if len(m.models) > 0 && !slices.Contains(m.models, want) {
		m.setError(fmt.Sprintf("Unknown model %q; /models lists %d", want, len(m.models)))
		return m, nil
	}
	m.modelName = want
	m.setStatus("Model: " + want)
	return m, nil
}

func (m Model) uploadCmd(paths []string) tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()
		docs, err := loader.Load(ctx, paths)
		return DocumentsLoadedMsg{Docs: docs, Err: err}
	}
}

func (m Model) exportCmd(format string) tea.Cmd {
	src, modelName, dir := m.ctrl, m.modelName, m.exportDir
	return func() tea.Msg {
		exporter, err := export.ForFormat(format)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		opts := export.DefaultOptions()
		opts.OutputDir = dir
		path, err := export.ExportToFile(export.FromSource(src, modelName), exporter, opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}
