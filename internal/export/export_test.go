// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lmchat/internal/model"
)

var testTime = time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC)

func msg(id int, role model.Role, content string) model.Message {
	return model.Message{ID: id, Role: role, Content: content, Timestamp: testTime}
}

func testConversation(msgs ...model.Message) *Conversation {
	return &Conversation{ID: "conv-1", Model: "qwen", CreatedAt: testTime, Messages: msgs}
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdownExport_Sections(t *testing.T) {
	conv := testConversation(
		msg(0, model.RoleUser, "hello"),
		msg(1, model.RoleSystem, "  Uploaded: a.txt \n"),
		msg(2, model.RoleAssistant, "   "),
		msg(3, model.RoleAssistant, "Hi **there**"),
	)

	out, err := NewMarkdownExporter(nil).Export(conv)
	require.NoError(t, err)

	assert.Equal(t,
		"## User\n\nhello\n\n"+
			"## System\n\nUploaded: a.txt\n\n"+
			"## Assistant\n\nHi there\n\n",
		string(out))
}

func TestMarkdownExport_RebuildsFences(t *testing.T) {
	content := "Here:\n\n```go\nfmt.Println(\"hi\")\n```\n\nUse `x` now."
	out, err := NewMarkdownExporter(nil).Export(testConversation(msg(0, model.RoleAssistant, content)))
	require.NoError(t, err)

	assert.Equal(t, "## Assistant\n\n"+content+"\n\n", string(out))
}

func TestMarkdownExport_CodeBlocksRoundTrip(t *testing.T) {
	original := "Two blocks:\n\n```python\nif a < b:\n    print(\"&\")\n```\n\n```\nplain\n```\n"
	out, err := NewMarkdownExporter(nil).Export(testConversation(msg(0, model.RoleAssistant, original)))
	require.NoError(t, err)

	assert.Equal(t, CodeBlocks(original), CodeBlocks(string(out)))
	assert.Equal(t, []CodeBlock{
		{Language: "python", Code: "if a < b:\n    print(\"&\")\n"},
		{Language: "", Code: "plain\n"},
	}, CodeBlocks(string(out)))
}

func TestMarkdownExport_Lists(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(testConversation(
		msg(0, model.RoleAssistant, "# Steps\n\n1. one\n2. two\n\n- a\n- b"),
	))
	require.NoError(t, err)
	assert.Equal(t, "## Assistant\n\n# Steps\n\n1. one\n2. two\n\n- a\n- b\n\n", string(out))
}

func TestMarkdownExport_Nil(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(nil)
	assert.ErrorIs(t, err, ErrNilConversation)
}

func TestCodeBlocks_None(t *testing.T) {
	assert.Empty(t, CodeBlocks("just `inline` text"))
}

// =============================================================================
// FILE NAMES AND FILES
// =============================================================================

func TestFilename(t *testing.T) {
	assert.Equal(t, "conversation-2024-01-02T03-04-05-678Z.md", DefaultFilename(testTime))

	local := testTime.In(time.FixedZone("X", 5*3600))
	assert.Equal(t, "conversation-2024-01-02T03-04-05-678Z.json", Filename(local, ".json"))
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	opts := &Options{OutputDir: dir, Now: func() time.Time { return testTime }}

	path, err := ExportToFile(testConversation(msg(0, model.RoleUser, "hi")), NewMarkdownExporter(nil), opts)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "conversation-2024-01-02T03-04-05-678Z.md"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "## User\n\nhi\n\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestForFormat(t *testing.T) {
	for format, ext := range map[string]string{"md": ".md", "markdown": ".md", "": ".md", "json": ".json", "HTML": ".html"} {
		e, err := ForFormat(format)
		require.NoError(t, err, format)
		assert.Equal(t, ext, e.FileExtension(), format)
	}
	_, err := ForFormat("pdf")
	assert.Error(t, err)
}

// =============================================================================
// JSON AND HTML
// =============================================================================

func TestJSONExport(t *testing.T) {
	conv := testConversation(msg(0, model.RoleUser, "hi"), msg(1, model.RoleAssistant, ""))
	conv.Documents = []string{"a.txt"}

	e := NewJSONExporter()
	e.now = func() time.Time { return testTime }
	out, err := e.Export(conv)
	require.NoError(t, err)

	var decoded struct {
		ID         string          `json:"id"`
		Model      string          `json:"model"`
		ExportedAt time.Time       `json:"exported_at"`
		Documents  []string        `json:"documents"`
		WebPages   []string        `json:"webpages"`
		Messages   []model.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "conv-1", decoded.ID)
	assert.Equal(t, "qwen", decoded.Model)
	assert.True(t, testTime.Equal(decoded.ExportedAt))
	assert.Equal(t, []string{"a.txt"}, decoded.Documents)
	assert.NotNil(t, decoded.WebPages)
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, model.RoleAssistant, decoded.Messages[1].Role)
}

func TestHTMLExport_EscapesFenceLanguage(t *testing.T) {
	conv := testConversation(msg(0, model.RoleAssistant, "```<script>alert('xss')</script>\ncode here\n```"))

	out, err := NewHTMLExporter(nil).Export(conv)
	require.NoError(t, err)

	page := string(out)
	assert.NotContains(t, page, "<script>alert")
	assert.Contains(t, page, "&lt;script&gt;")
	assert.Contains(t, page, "code here")
}

func TestHTMLExport_Page(t *testing.T) {
	conv := testConversation(
		msg(0, model.RoleUser, "show code"),
		msg(1, model.RoleSystem, "<b>Uploaded</b>"),
		msg(2, model.RoleAssistant, "```go\nx := 1\n```"),
	)

	out, err := NewHTMLExporter(nil).Export(conv)
	require.NoError(t, err)
	page := string(out)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, `class="message user-message"`)
	assert.Contains(t, page, "&lt;b&gt;Uploaded&lt;/b&gt;")
	assert.Contains(t, page, `<code class="language-go">`)
	assert.Contains(t, page, ".chroma")
	assert.Contains(t, page, "<strong>Model:</strong> qwen")
}

// =============================================================================
// SOURCE
// =============================================================================

type fakeSource struct{}

func (fakeSource) ID() string                { return "abc" }
func (fakeSource) CreatedAt() time.Time      { return testTime }
func (fakeSource) Messages() []model.Message { return []model.Message{msg(0, model.RoleUser, "x")} }
func (fakeSource) Documents() []string       { return []string{"d"} }
func (fakeSource) WebPages() []string        { return []string{"https://w"} }

func TestFromSource(t *testing.T) {
	conv := FromSource(fakeSource{}, "m")
	assert.Equal(t, "abc", conv.ID)
	assert.Equal(t, "m", conv.Model)
	assert.Equal(t, []string{"d"}, conv.Documents)
	assert.Equal(t, []string{"https://w"}, conv.WebPages)
	assert.Len(t, conv.Messages, 1)
}
