// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat transcript to a file.
//
// # Key Types
//
//   - Conversation: the exported view of a session
//   - Exporter: converts a Conversation to bytes in one format
//   - Options: output directory and clock
//
// # Supported Formats
//
//   - Markdown: one "## Role" section per message, code fences intact
//   - JSON: transcript plus session metadata
//   - HTML: standalone page with highlighted code
//
// # Usage
//
//	conv := export.FromSource(controller, "qwen2.5-7b-instruct")
//	path, err := export.ExportToFile(conv, export.NewMarkdownExporter(nil), nil)
package export
