// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Renderer converts cumulative markdown to display form. Implementations
// must be idempotent.
type Renderer interface {
	Render(markdown string) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(string) (string, error)

// Render calls f.
func (f RendererFunc) Render(s string) (string, error) { return f(s) }

// Plain returns markdown unchanged.
var Plain Renderer = RendererFunc(func(s string) (string, error) { return s, nil })

// =============================================================================
// TERMINAL RENDERER
// =============================================================================

// Theme names accepted by NewTerminalRenderer.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemeNoTTY = "notty"
)

// DefaultWordWrap is the wrap width used when none is given.
const DefaultWordWrap = 80

// TerminalRenderer renders markdown with glamour. Calls are serialised
// because a glamour renderer keeps internal buffers.
type TerminalRenderer struct {
	mu sync.Mutex
	tr *glamour.TermRenderer
}

// NewTerminalRenderer creates a renderer for the given theme and wrap width.
func NewTerminalRenderer(theme string, width int) (*TerminalRenderer, error) {
	if width <= 0 {
		width = DefaultWordWrap
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(ResolveTheme(theme)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &TerminalRenderer{tr: tr}, nil
}

// Render renders markdown. If glamour fails the input is returned as is,
// together with the error.
func (r *TerminalRenderer) Render(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out, err := r.tr.Render(markdown)
	if err != nil {
		return markdown, err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

// ResolveTheme maps "auto" (or "") to a concrete glamour style: notty when
// stdout is not a terminal, otherwise dark or light by background.
func ResolveTheme(theme string) string {
	switch theme {
	case ThemeDark, ThemeLight, ThemeNoTTY:
		return theme
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return ThemeNoTTY
	}
	if termenv.HasDarkBackground() {
		return ThemeDark
	}
	return ThemeLight
}
