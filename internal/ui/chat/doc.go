// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the bubbletea chat screen.
//
// The screen is a scrolling transcript (viewport), a multi-line input
// (textarea) and a status line. Submitting runs session.Controller.Submit
// in a command goroutine; transcript changes come back as MessageAddedMsg
// and MessageUpdatedMsg through tea.Program.Send, which keeps their order.
//
// # Keys
//
//   - Enter: submit (ignored while a response is generating)
//   - Alt+Enter: newline
//   - Esc: cancel the running generation
//   - PgUp/PgDn: scroll
//   - Ctrl+C: quit
//
// # Commands
//
//	/help /model [name] /models /upload <path>... /remove <name>
//	/docs /save [md|json|html] /clear /quit
package chat
