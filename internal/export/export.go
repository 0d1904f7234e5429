// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/lmchat/internal/model"
	"github.com/jeranaias/lmchat/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *Conversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrNilConversation is returned when an exporter is given nothing to export.
var ErrNilConversation = errors.New("conversation is nil")

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is the exported view of a session.
type Conversation struct {
	ID        string
	Model     string
	CreatedAt time.Time
	Documents []string
	WebPages  []string
	Messages  []model.Message
}

// Source is anything that can be exported. *session.Controller satisfies it.
type Source interface {
	ID() string
	CreatedAt() time.Time
	Messages() []model.Message
	Documents() []string
	WebPages() []string
}

// FromSource snapshots src for export.
func FromSource(src Source, modelID string) *Conversation {
	return &Conversation{
		ID:        src.ID(),
		Model:     modelID,
		CreatedAt: src.CreatedAt(),
		Documents: src.Documents(),
		WebPages:  src.WebPages(),
		Messages:  src.Messages(),
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// Now supplies the timestamp used in file names. Default: time.Now
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir: ".",
		Now:       time.Now,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// Filename returns "conversation-<timestamp><ext>". The timestamp is the
// ISO 8601 UTC time with ':' and '.' replaced by '-'.
func Filename(t time.Time, ext string) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return "conversation-" + stamp + ext
}

// DefaultFilename returns the markdown file name for t.
func DefaultFilename(t time.Time) string {
	return Filename(t, ".md")
}

// ExportToFile exports a conversation to a file using the specified exporter.
// The file is written atomically. Returns the output file path or an error.
func ExportToFile(conv *Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := filepath.Join(dir, Filename(now(), exporter.FileExtension()))
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		return NewMarkdownExporter(nil), nil
	case "json":
		return NewJSONExporter(), nil
	case "html", "htm":
		return NewHTMLExporter(nil), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
