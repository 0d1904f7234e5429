// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/lmchat/internal/documents"
	"github.com/jeranaias/lmchat/internal/model"
	"github.com/jeranaias/lmchat/internal/session"
)

// =============================================================================
// TRANSCRIPT MESSAGES
// =============================================================================

// MessageAddedMsg reports a new transcript message.
type MessageAddedMsg struct {
	Message model.Message
}

// MessageUpdatedMsg carries the cumulative content of a message.
type MessageUpdatedMsg struct {
	ID      int
	Content string
}

// SubmitDoneMsg ends a generation.
type SubmitDoneMsg struct {
	Outcome session.Outcome
	Err     error
}

// =============================================================================
// BACKGROUND RESULTS
// =============================================================================

// ModelsLoadedMsg delivers the server's model list.
type ModelsLoadedMsg struct {
	Models []string
	Err    error
}

// DocumentsLoadedMsg delivers files read by /upload.
type DocumentsLoadedMsg struct {
	Docs []documents.Document
	Err  error
}

// DocumentChangedMsg reports a tracked file that changed on disk.
type DocumentChangedMsg struct {
	Doc documents.Document
}

// ExportDoneMsg reports the result of /save.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// renderTickMsg triggers a deferred streaming frame.
type renderTickMsg struct{}
