// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns cumulative markdown into displayable output.
//
// A Renderer is a pure function of its input: rendering the same text twice
// yields the same output. Streaming callers re-render the whole accumulated
// response after each delta instead of appending, so a Throttle limits how
// often that happens and always renders the final text.
//
// # Key Types
//
//   - TerminalRenderer: ANSI output through glamour
//   - HTMLRenderer: HTML through goldmark, code highlighted by chroma
//   - Plain: returns its input unchanged
//   - Throttle: frame limiter around any Renderer
package render
