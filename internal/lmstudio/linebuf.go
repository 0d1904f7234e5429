// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"bytes"
	"strings"
)

// LineBuffer reassembles newline-terminated lines from arbitrarily split
// reads. The unterminated tail of each Write is held until a later Write
// completes it or Flush releases it.
type LineBuffer struct {
	partial []byte
}

// Write appends p and returns every line it completes, with the line
// terminator (and a trailing '\r') removed.
func (b *LineBuffer) Write(p []byte) []string {
	var lines []string
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			b.partial = append(b.partial, p...)
			break
		}
		var line []byte
		if len(b.partial) > 0 {
			line = append(b.partial, p[:i]...)
			b.partial = b.partial[:0]
		} else {
			line = p[:i]
		}
		lines = append(lines, strings.TrimSuffix(string(line), "\r"))
		p = p[i+1:]
	}
	return lines
}

// Flush returns the buffered partial line, if any, and resets the buffer.
func (b *LineBuffer) Flush() (string, bool) {
	if len(b.partial) == 0 {
		return "", false
	}
	line := strings.TrimSuffix(string(b.partial), "\r")
	b.partial = b.partial[:0]
	return line, true
}

// Pending returns the number of buffered bytes not yet forming a line.
func (b *LineBuffer) Pending() int {
	return len(b.partial)
}
