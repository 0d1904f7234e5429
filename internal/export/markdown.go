// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/jeranaias/lmchat/internal/model"
	"github.com/jeranaias/lmchat/internal/render"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown. Message content goes
// through the HTML renderer and back, so the file holds what was displayed.
type MarkdownExporter struct {
	renderer *render.HTMLRenderer
}

// NewMarkdownExporter creates a new Markdown exporter. A nil renderer uses
// the default code style.
func NewMarkdownExporter(r *render.HTMLRenderer) *MarkdownExporter {
	if r == nil {
		r = render.NewHTMLRenderer("")
	}
	return &MarkdownExporter{renderer: r}
}

// Export converts a conversation to Markdown format. Empty messages are
// skipped.
func (e *MarkdownExporter) Export(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}

	var sb strings.Builder
	for _, msg := range conv.Messages {
		if msg.IsEmpty() {
			continue
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", roleHeading(msg.Role)))

		if msg.IsSystem() {
			sb.WriteString(strings.TrimSpace(msg.Content))
			sb.WriteString("\n\n")
			continue
		}

		body, err := e.renderer.Render(msg.Content)
		if err != nil {
			return nil, fmt.Errorf("render message %d: %w", msg.ID, err)
		}
		md, err := htmlToMarkdown(body)
		if err != nil {
			return nil, fmt.Errorf("convert message %d: %w", msg.ID, err)
		}
		sb.WriteString(md)
		sb.WriteString("\n\n")
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// roleHeading returns the section heading for a role. Anything unknown is
// exported as System.
func roleHeading(role model.Role) string {
	switch role {
	case model.RoleUser, model.RoleAssistant:
		return role.Heading()
	default:
		return model.RoleSystem.Heading()
	}
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

// CodeBlock is one fenced block of a markdown document.
type CodeBlock struct {
	Language string
	Code     string
}

// CodeBlocks returns the fenced code blocks of a markdown document in order.
func CodeBlocks(markdown string) []CodeBlock {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var code strings.Builder
		lines := fence.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			code.Write(seg.Value(source))
		}
		blocks = append(blocks, CodeBlock{
			Language: string(fence.Language(source)),
			Code:     code.String(),
		})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}
