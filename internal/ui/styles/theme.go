// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lmchat/internal/model"
)

// Theme holds the styles of the chat screen.
type Theme struct {
	Header      lipgloss.Style
	HeaderModel lipgloss.Style
	Offline     lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	Timestamp      lipgloss.Style

	SystemText    lipgloss.Style
	FailedText    lipgloss.Style
	CancelledNote lipgloss.Style

	Input       lipgloss.Style
	InputBusy   lipgloss.Style
	StatusBar   lipgloss.Style
	StatusError lipgloss.Style
	Spinner     lipgloss.Style
	Help        lipgloss.Style
}

// NewTheme creates the default theme.
func NewTheme() *Theme {
	return &Theme{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(TextPrimary).
			Background(SurfaceDim).
			Padding(0, 1),
		HeaderModel: lipgloss.NewStyle().Foreground(Purple),
		Offline: lipgloss.NewStyle().
			Bold(true).
			Foreground(TextInverse).
			Background(Amber).
			Padding(0, 1),

		UserLabel:      lipgloss.NewStyle().Bold(true).Foreground(Cyan),
		AssistantLabel: lipgloss.NewStyle().Bold(true).Foreground(Purple),
		SystemLabel:    lipgloss.NewStyle().Bold(true).Foreground(Amber),
		Timestamp:      lipgloss.NewStyle().Foreground(TextMuted),

		SystemText:    lipgloss.NewStyle().Italic(true).Foreground(TextSecondary),
		FailedText:    lipgloss.NewStyle().Foreground(Rose),
		CancelledNote: lipgloss.NewStyle().Italic(true).Foreground(TextMuted),

		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Cyan),
		InputBusy: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Overlay),
		StatusBar:   lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1),
		StatusError: lipgloss.NewStyle().Foreground(Rose).Padding(0, 1),
		Spinner:     lipgloss.NewStyle().Foreground(Purple),
		Help:        lipgloss.NewStyle().Foreground(TextMuted),
	}
}

// RoleLabel returns the label style for a role.
func (t *Theme) RoleLabel(role model.Role) lipgloss.Style {
	switch role {
	case model.RoleUser:
		return t.UserLabel
	case model.RoleAssistant:
		return t.AssistantLabel
	default:
		return t.SystemLabel
	}
}
