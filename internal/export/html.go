// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/jeranaias/lmchat/internal/model"
	"github.com/jeranaias/lmchat/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page. Code blocks
// are highlighted with chroma classes and the stylesheet is embedded.
type HTMLExporter struct {
	renderer *render.HTMLRenderer
}

// NewHTMLExporter creates a new HTML exporter. A nil renderer uses the
// default code style.
func NewHTMLExporter(r *render.HTMLRenderer) *HTMLExporter {
	if r == nil {
		r = render.NewHTMLRenderer("")
	}
	return &HTMLExporter{renderer: r}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>Conversation %s</title>\n", html.EscapeString(formatTimestamp(conv.CreatedAt))))
	sb.WriteString("    <meta name=\"generator\" content=\"lmchat\">\n")
	sb.WriteString("    <style>\n")
	sb.WriteString(pageCSS)
	if err := e.renderer.WriteCSS(&sb); err != nil {
		return nil, fmt.Errorf("write code css: %w", err)
	}
	sb.WriteString("    </style>\n")
	sb.WriteString("</head>\n")
	sb.WriteString("<body>\n")

	sb.WriteString("    <header class=\"header\">\n")
	sb.WriteString("        <h1>Conversation</h1>\n")
	sb.WriteString("        <div class=\"metadata\">\n")
	if conv.Model != "" {
		sb.WriteString(fmt.Sprintf("            <span><strong>Model:</strong> %s</span>\n", html.EscapeString(conv.Model)))
	}
	sb.WriteString(fmt.Sprintf("            <span><strong>Started:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt)))
	sb.WriteString(fmt.Sprintf("            <span><strong>Messages:</strong> %d</span>\n", len(conv.Messages)))
	sb.WriteString("        </div>\n")
	sb.WriteString("    </header>\n")

	sb.WriteString("    <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		if msg.IsEmpty() {
			continue
		}
		out, err := e.renderMessage(msg)
		if err != nil {
			return nil, err
		}
		sb.WriteString(out)
	}
	sb.WriteString("    </main>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// renderMessage renders a single message. System text is escaped, not
// parsed as markdown.
func (e *HTMLExporter) renderMessage(msg model.Message) (string, error) {
	var sb strings.Builder

	role := roleHeading(msg.Role)
	sb.WriteString(fmt.Sprintf("        <div class=\"message %s-message\">\n", strings.ToLower(role)))
	sb.WriteString("            <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"role-label\">%s</span>\n", role))
	sb.WriteString(fmt.Sprintf("                <span class=\"timestamp\">%s</span>\n", msg.FormattedTime()))
	sb.WriteString("            </div>\n")
	sb.WriteString("            <div class=\"message-content\">\n")

	if msg.IsSystem() {
		sb.WriteString("<p>" + html.EscapeString(strings.TrimSpace(msg.Content)) + "</p>\n")
	} else {
		body, err := e.renderer.Render(msg.Content)
		if err != nil {
			return "", fmt.Errorf("render message %d: %w", msg.ID, err)
		}
		sb.WriteString(body)
	}

	sb.WriteString("            </div>\n")
	sb.WriteString("        </div>\n")
	return sb.String(), nil
}

const pageCSS = `        :root {
            --bg: #1a1b26;
            --panel: #24283b;
            --text: #c0caf5;
            --muted: #565f89;
            --border: #414868;
            --user: #7aa2f7;
            --assistant: #9ece6a;
            --system: #bb9af7;
        }
        body {
            margin: 0 auto;
            max-width: 900px;
            padding: 2rem 1rem;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            line-height: 1.6;
            color: var(--text);
            background: var(--bg);
        }
        .header { border-bottom: 2px solid var(--border); margin-bottom: 1.5rem; }
        .metadata { display: flex; gap: 1.5rem; color: var(--muted); padding-bottom: 1rem; }
        .message {
            background: var(--panel);
            border-left: 4px solid var(--border);
            border-radius: 6px;
            margin-bottom: 1rem;
            padding: 0.75rem 1rem;
        }
        .user-message { border-left-color: var(--user); }
        .assistant-message { border-left-color: var(--assistant); }
        .system-message { border-left-color: var(--system); font-style: italic; }
        .message-header { display: flex; justify-content: space-between; font-weight: 600; }
        .timestamp { color: var(--muted); font-weight: normal; font-size: 0.85em; }
        pre { overflow-x: auto; padding: 0.75rem; border-radius: 4px; background: #272822; }
        code { font-family: "SF Mono", "Fira Code", monospace; }
`
