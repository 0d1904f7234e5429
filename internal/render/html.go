// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// DefaultCodeStyle is the chroma style used for HTML output.
const DefaultCodeStyle = "monokai"

// HTMLRenderer renders markdown to an HTML fragment. Fenced code blocks are
// emitted as <pre><code class="language-X">, with the body highlighted
// using chroma CSS classes.
type HTMLRenderer struct {
	md    goldmark.Markdown
	style *chroma.Style
}

// NewHTMLRenderer creates an HTML renderer using the named chroma style.
func NewHTMLRenderer(styleName string) *HTMLRenderer {
	if styleName == "" {
		styleName = DefaultCodeStyle
	}
	style := styles.Get(styleName)

	fences := &fenceRenderer{
		style:     style,
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.PreventSurroundingPre(true)),
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(fences, 100)),
		),
	)
	return &HTMLRenderer{md: md, style: style}
}

// Render converts markdown to HTML.
func (r *HTMLRenderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteCSS writes the stylesheet for the highlight classes.
func (r *HTMLRenderer) WriteCSS(w io.Writer) error {
	return chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(w, r.style)
}

// =============================================================================
// FENCED CODE BLOCKS
// =============================================================================

type fenceRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func (r *fenceRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *fenceRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lang := string(n.Language(source))
	_, _ = w.WriteString("<pre><code")
	if lang != "" {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML([]byte(lang)))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')

	if err := r.highlight(w, lang, code.String()); err != nil {
		_, _ = w.Write(util.EscapeHTML([]byte(code.String())))
	}

	_, _ = w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}

// highlight writes code as chroma class spans. It buffers so a tokenizer
// failure leaves w untouched for the escaped fallback.
func (r *fenceRenderer) highlight(w io.Writer, lang, code string) error {
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}
