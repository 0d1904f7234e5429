// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across lmchat.
//
//   - AtomicWriteFile: crash-safe file writes (temp file, fsync, rename)
//   - TruncateWidth, PadRight, StringWidth: terminal column arithmetic
//     for CJK and emoji, backed by go-runewidth
//   - TruncateRunes: rune-safe truncation for log previews
package util
