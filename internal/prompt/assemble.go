// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import "strings"

const (
	documentsHeader = "Here are the relevant documents:\n\n"
	webpagesHeader  = "Here are the relevant webpages:\n\n"
	instruction     = "Based on this information, please respond to: "
)

// Assemble merges docs, pages and message into one prompt. With no docs and
// no pages the message is returned verbatim. Otherwise every document
// section precedes every webpage section, each in the given order, followed
// by the instruction and the message. Nothing is truncated or deduplicated.
func Assemble(docs, pages []Entry, message string) string {
	if len(docs) == 0 && len(pages) == 0 {
		return message
	}

	var b strings.Builder
	b.Grow(ContextSize(docs, pages) + len(instruction) + len(message))
	writeContext(&b, docs, pages)
	b.WriteString(instruction)
	b.WriteString(message)
	return b.String()
}

// Context returns only the context block, without instruction or message.
func Context(docs, pages []Entry) string {
	var b strings.Builder
	writeContext(&b, docs, pages)
	return b.String()
}

// ContextSize returns the byte length of the context block.
func ContextSize(docs, pages []Entry) int {
	n := 0
	if len(docs) > 0 {
		n += len(documentsHeader)
		for _, d := range docs {
			n += len("File: \n\n\n") + len(d.Key) + len(d.Content)
		}
	}
	if len(pages) > 0 {
		n += len(webpagesHeader)
		for _, p := range pages {
			n += len("URL: \nContent:\n\n\n") + len(p.Key) + len(p.Content)
		}
	}
	return n
}

func writeContext(b *strings.Builder, docs, pages []Entry) {
	if len(docs) > 0 {
		b.WriteString(documentsHeader)
		for _, d := range docs {
			b.WriteString("File: ")
			b.WriteString(d.Key)
			b.WriteString("\n")
			b.WriteString(d.Content)
			b.WriteString("\n\n")
		}
	}
	if len(pages) > 0 {
		b.WriteString(webpagesHeader)
		for _, p := range pages {
			b.WriteString("URL: ")
			b.WriteString(p.Key)
			b.WriteString("\nContent:\n")
			b.WriteString(p.Content)
			b.WriteString("\n\n")
		}
	}
}

// AssembleFrom snapshots both stores and assembles the prompt.
func AssembleFrom(docs, pages *Store, message string) string {
	return Assemble(docs.Snapshot(), pages.Snapshot(), message)
}
