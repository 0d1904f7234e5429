// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"encoding/json"
	"time"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatMessage is one entry of the messages array.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the body of POST /v1/chat/completions.
type CompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// NewCompletionRequest builds a streaming request with a single user message.
func NewCompletionRequest(model, prompt string) CompletionRequest {
	return CompletionRequest{
		Model:    model,
		Messages: []ChatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	}
}

// =============================================================================
// STREAM TYPES
// =============================================================================

// StreamChunk is one decoded `data:` payload.
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
	Error   *APIError      `json:"error,omitempty"`
}

// StreamChoice is a choice within a StreamChunk.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// StreamDelta holds the incremental content of a choice.
type StreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// APIError is the error object some servers emit inside the stream.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// GetContent returns choices[0].delta.content, or "" when absent.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// GetFinishReason returns choices[0].finish_reason, or "".
func (c *StreamChunk) GetFinishReason() string {
	if len(c.Choices) == 0 || c.Choices[0].FinishReason == nil {
		return ""
	}
	return *c.Choices[0].FinishReason
}

// Delta is one fragment of assistant output, in arrival order.
type Delta struct {
	Index   int
	Content string
}

// Result is the fold over one stream, available once it terminates.
type Result struct {
	Model         string
	Content       string
	Deltas        int
	ParseFailures int
	FinishReason  string
	State         State
	FirstDelta    time.Duration
	Elapsed       time.Duration
	Err           error
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ListModelsResponse is the body of GET /v1/models. IDs stay raw so that
// entries with a non-string id can be skipped instead of failing the decode.
type ListModelsResponse struct {
	Data []ModelEntry `json:"data"`
}

// ModelEntry is one element of ListModelsResponse.Data.
type ModelEntry struct {
	ID      json.RawMessage `json:"id"`
	Object  string          `json:"object,omitempty"`
	OwnedBy string          `json:"owned_by,omitempty"`
}
