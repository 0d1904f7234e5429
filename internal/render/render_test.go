// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HTML RENDERER TESTS
// =============================================================================

func TestHTMLRenderer_FencedCodeBlock(t *testing.T) {
	r := NewHTMLRenderer("")
	out, err := r.Render("Intro\n\n```go\nfmt.Println(\"<hi>\")\n```\n")
	require.NoError(t, err)

	assert.Contains(t, out, `<p>Intro</p>`)
	assert.Contains(t, out, `<pre><code class="language-go">`)
	assert.Contains(t, out, `</code></pre>`)
	assert.Contains(t, out, `class="`, "code body is highlighted with classes")
	assert.NotContains(t, out, `<hi>`, "code body is escaped")
	assert.Contains(t, out, `&lt;hi&gt;`)
}

func TestHTMLRenderer_UnknownLanguageAndNoLanguage(t *testing.T) {
	r := NewHTMLRenderer("monokai")

	out, err := r.Render("```nosuchlang\nx := 1\n```\n")
	require.NoError(t, err)
	assert.Contains(t, out, `<pre><code class="language-nosuchlang">`)
	assert.Contains(t, out, "x :=")

	out, err = r.Render("```\nplain\n```\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<pre><code>")
	assert.Contains(t, out, "plain")
}

func TestHTMLRenderer_InlineAndGFM(t *testing.T) {
	out, err := NewHTMLRenderer("").Render("Use `go test` and ~~not~~ this:\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)

	assert.Contains(t, out, "<code>go test</code>")
	assert.Contains(t, out, "<del>not</del>")
	assert.Contains(t, out, "<table>")
}

func TestHTMLRenderer_Idempotent(t *testing.T) {
	r := NewHTMLRenderer("")
	md := "# Title\n\n```python\nprint('x')\n```\n\n- a\n- b\n"

	first, err := r.Render(md)
	require.NoError(t, err)
	second, err := r.Render(md)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHTMLRenderer_PartialFenceWhileStreaming(t *testing.T) {
	// Mid-stream text often has an unterminated fence; it still renders.
	out, err := NewHTMLRenderer("").Render("Here:\n\n```go\nfunc main() {")
	require.NoError(t, err)
	assert.Contains(t, out, `class="language-go"`)
}

func TestHTMLRenderer_WriteCSS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewHTMLRenderer("").WriteCSS(&buf))
	assert.Contains(t, buf.String(), ".chroma")
}

// =============================================================================
// TERMINAL RENDERER TESTS
// =============================================================================

func TestTerminalRenderer_Idempotent(t *testing.T) {
	r, err := NewTerminalRenderer(ThemeNoTTY, 60)
	require.NoError(t, err)

	md := "**bold** text\n\n```go\nx := 1\n```\n"
	first, err := r.Render(md)
	require.NoError(t, err)
	second, err := r.Render(md)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "bold")
	assert.Contains(t, first, "x := 1")
}

func TestTerminalRenderer_Empty(t *testing.T) {
	r, err := NewTerminalRenderer(ThemeDark, 0)
	require.NoError(t, err)

	out, err := r.Render("   ")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResolveTheme(t *testing.T) {
	assert.Equal(t, ThemeLight, ResolveTheme(ThemeLight))
	assert.Equal(t, ThemeNoTTY, ResolveTheme(ThemeNoTTY))
	// Under go test stdout is not a terminal.
	assert.Equal(t, ThemeNoTTY, ResolveTheme(ThemeAuto))
}

// =============================================================================
// THROTTLE TESTS
// =============================================================================

type countingRenderer struct{ calls atomic.Int32 }

func (c *countingRenderer) Render(s string) (string, error) {
	c.calls.Add(1)
	return strings.ToUpper(s), nil
}

func TestThrottle_LimitsRendersAndFlushesFinal(t *testing.T) {
	cr := &countingRenderer{}
	th := NewThrottle(cr, 1)

	var cumulative string
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		cumulative += d
		_, _, err := th.Update(cumulative)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), cr.calls.Load(), "only the first frame fits the budget")

	out, err := th.Flush(cumulative)
	require.NoError(t, err)
	assert.Equal(t, "ABCDE", out)
	assert.Equal(t, int32(2), cr.calls.Load())

	out, err = th.Flush(cumulative)
	require.NoError(t, err)
	assert.Equal(t, "ABCDE", out)
	assert.Equal(t, int32(2), cr.calls.Load(), "unchanged input is not re-rendered")
}

func TestThrottle_SkippedUpdateReturnsPreviousFrame(t *testing.T) {
	th := NewThrottle(&countingRenderer{}, 1)

	out, rendered, err := th.Update("x")
	require.NoError(t, err)
	assert.True(t, rendered)
	assert.Equal(t, "X", out)

	out, rendered, err = th.Update("xy")
	require.NoError(t, err)
	assert.False(t, rendered)
	assert.Equal(t, "X", out)

	th.Reset()
	out, err = th.Flush("z")
	require.NoError(t, err)
	assert.Equal(t, "Z", out)
}

func TestPlain(t *testing.T) {
	out, err := Plain.Render("# raw")
	require.NoError(t, err)
	assert.Equal(t, "# raw", out)
}
