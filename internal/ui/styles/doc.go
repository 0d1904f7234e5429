// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colors and lipgloss styles of the chat screen.
//
// All colors are lipgloss.AdaptiveColor values, so they follow the
// terminal's light or dark background.
//
// # Usage
//
//	theme := styles.NewTheme()
//	label := theme.RoleLabel(model.RoleAssistant).Render("Assistant")
package styles
