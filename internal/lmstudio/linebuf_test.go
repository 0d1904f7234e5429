// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineBuffer_SplitsCompleteLines(t *testing.T) {
	var b LineBuffer

	lines := b.Write([]byte("one\ntwo\nthr"))
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.Equal(t, 3, b.Pending())

	lines = b.Write([]byte("ee\n"))
	assert.Equal(t, []string{"three"}, lines)
	assert.Equal(t, 0, b.Pending())
}

func TestLineBuffer_TrimsCarriageReturn(t *testing.T) {
	var b LineBuffer

	lines := b.Write([]byte("data: a\r\n\r\ndata: b\r"))
	assert.Equal(t, []string{"data: a", ""}, lines)

	tail, ok := b.Flush()
	assert.True(t, ok)
	assert.Equal(t, "data: b", tail)
}

func TestLineBuffer_ByteAtATime(t *testing.T) {
	var b LineBuffer
	var got []string

	for _, c := range []byte("ab\ncd\n\nef") {
		got = append(got, b.Write([]byte{c})...)
	}

	assert.Equal(t, []string{"ab", "cd", ""}, got)
	tail, ok := b.Flush()
	assert.True(t, ok)
	assert.Equal(t, "ef", tail)

	_, ok = b.Flush()
	assert.False(t, ok, "flush must reset the buffer")
}

func TestLineBuffer_SplitInsideMultibyteRune(t *testing.T) {
	var b LineBuffer
	raw := []byte("héllo\n")

	// é is two bytes; split between them.
	first := b.Write(raw[:2])
	second := b.Write(raw[2:])

	assert.Empty(t, first)
	assert.Equal(t, []string{"héllo"}, second)
}
