// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/lmchat/internal/model"
)

// printer writes a session's transcript changes to a terminal or pipe.
// Assistant text goes to out as it streams; system messages go to info.
type printer struct {
	out  io.Writer
	info io.Writer

	// quiet suppresses assistant text, for callers that render it later.
	quiet bool

	prev map[int]string
}

func newPrinter(out, info io.Writer) *printer {
	return &printer{out: out, info: info, prev: make(map[int]string)}
}

func (p *printer) MessageAdded(msg model.Message) {
	p.prev[msg.ID] = msg.Content
	if msg.IsSystem() {
		fmt.Fprintf(p.info, "[%s] %s\n", msg.Role.DisplayName(), msg.Content)
	}
}

func (p *printer) MessageUpdated(id int, content string) {
	prev := p.prev[id]
	p.prev[id] = content
	if p.quiet {
		return
	}
	if strings.HasPrefix(content, prev) {
		io.WriteString(p.out, content[len(prev):])
		return
	}
	// A failure message replaces what streamed so far.
	fmt.Fprintf(p.out, "\n%s", content)
}
