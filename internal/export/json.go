// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/lmchat/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the complete transcript with session metadata.
// Nothing is filtered; empty messages are kept.
type JSONExporter struct {
	now func() time.Time
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{now: time.Now}
}

type jsonConversation struct {
	ID         string          `json:"id"`
	Model      string          `json:"model,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ExportedAt time.Time       `json:"exported_at"`
	Documents  []string        `json:"documents"`
	WebPages   []string        `json:"webpages"`
	Messages   []model.Message `json:"messages"`
}

// Export converts a conversation to indented JSON.
func (e *JSONExporter) Export(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}

	out := jsonConversation{
		ID:         conv.ID,
		Model:      conv.Model,
		CreatedAt:  conv.CreatedAt.UTC(),
		ExportedAt: e.now().UTC(),
		Documents:  nonNil(conv.Documents),
		WebPages:   nonNil(conv.WebPages),
		Messages:   conv.Messages,
	}
	if out.Messages == nil {
		out.Messages = []model.Message{}
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
