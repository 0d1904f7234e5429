// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// =============================================================================
// HTML TO MARKDOWN
// =============================================================================

// htmlToMarkdown turns rendered message HTML back into markdown.
// <pre><code class="language-X"> becomes a fence tagged X and inline <code>
// becomes backticks. Headings, paragraphs and list items keep their block
// structure; every other tag is reduced to its text.
func htmlToMarkdown(fragment string) (string, error) {
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return "", err
	}

	w := &mdWriter{}
	for _, n := range nodes {
		w.node(n)
	}
	return strings.TrimSpace(w.b.String()), nil
}

type listState struct {
	ordered bool
	n       int
}

type mdWriter struct {
	b     strings.Builder
	lists []listState
}

func (w *mdWriter) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
	case html.CommentNode:
		return
	default:
		w.children(n)
		return
	}

	switch n.DataAtom {
	case atom.Pre:
		w.fence(n)
	case atom.Code:
		w.b.WriteByte('`')
		w.b.WriteString(textContent(n))
		w.b.WriteByte('`')
	case atom.P:
		if n.Parent != nil && n.Parent.DataAtom == atom.Li {
			w.children(n)
			return
		}
		w.block()
		w.children(n)
		w.block()
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level, _ := strconv.Atoi(n.Data[1:])
		w.block()
		w.b.WriteString(strings.Repeat("#", level) + " ")
		w.children(n)
		w.block()
	case atom.Ul, atom.Ol:
		w.block()
		w.lists = append(w.lists, listState{ordered: n.DataAtom == atom.Ol})
		w.children(n)
		w.lists = w.lists[:len(w.lists)-1]
		w.block()
	case atom.Li:
		w.newline()
		w.b.WriteString(w.bullet())
		w.children(n)
	case atom.Blockquote:
		w.block()
		w.children(n)
		w.block()
	case atom.Br:
		w.b.WriteByte('\n')
	case atom.Hr:
		w.block()
		w.b.WriteString("---")
		w.block()
	default:
		w.children(n)
	}
}

func (w *mdWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

// text writes a text node. Whitespace-only runs that contain a newline are
// layout between elements and are dropped.
func (w *mdWriter) text(s string) {
	if strings.TrimSpace(s) == "" && strings.Contains(s, "\n") {
		return
	}
	w.b.WriteString(s)
}

func (w *mdWriter) bullet() string {
	if len(w.lists) == 0 {
		return "- "
	}
	top := &w.lists[len(w.lists)-1]
	indent := strings.Repeat("  ", len(w.lists)-1)
	if top.ordered {
		top.n++
		return indent + strconv.Itoa(top.n) + ". "
	}
	return indent + "- "
}

func (w *mdWriter) fence(pre *html.Node) {
	lang := ""
	body := pre
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			body = c
			lang = fenceLanguage(c)
			break
		}
	}

	w.block()
	w.b.WriteString("```" + lang + "\n")
	w.b.WriteString(strings.TrimSuffix(textContent(body), "\n"))
	w.b.WriteString("\n```")
	w.block()
}

// newline ends the current line unless at the start of output or a line.
func (w *mdWriter) newline() {
	s := w.b.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	w.b.WriteByte('\n')
}

// block ensures the next output starts a new paragraph.
func (w *mdWriter) block() {
	s := w.b.String()
	switch {
	case s == "", strings.HasSuffix(s, "\n\n"):
	case strings.HasSuffix(s, "\n"):
		w.b.WriteByte('\n')
	default:
		w.b.WriteString("\n\n")
	}
}

// fenceLanguage reads X from class="language-X".
func fenceLanguage(code *html.Node) string {
	for _, attr := range code.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(attr.Val) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				return lang
			}
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
