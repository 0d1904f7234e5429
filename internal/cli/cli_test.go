// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/documents"
	"github.com/jeranaias/lmchat/internal/lmstudio"
	"github.com/jeranaias/lmchat/internal/model"
	"github.com/jeranaias/lmchat/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// =============================================================================
// TEST HELPERS
// =============================================================================

type upstream struct {
	mu      sync.Mutex
	models  string
	prompts []string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/v1/models":
		u.mu.Lock()
		models := u.models
		u.mu.Unlock()
		fmt.Fprint(w, models)
	case "/v1/chat/completions":
		var req lmstudio.CompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		u.mu.Lock()
		u.prompts = append(u.prompts, req.Messages[0].Content)
		u.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range []string{"Hi", " there"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	default:
		http.NotFound(w, r)
	}
}

func (u *upstream) lastPrompt() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.prompts) == 0 {
		return ""
	}
	return u.prompts[len(u.prompts)-1]
}

func newUpstream(t *testing.T) (*upstream, string) {
	t.Helper()
	u := &upstream{models: `{"data":[{"id":"qwen"},{"id":"llama-3-8b-instruct"}]}`}
	srv := httptest.NewServer(u)
	t.Cleanup(func() {
		srv.CloseClientConnections()
		srv.Close()
	})
	return u, srv.URL
}

// run executes the command line with a private config and log file.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	for _, name := range []string{"LMCHAT_ENDPOINT", "LMCHAT_MODEL", "LMCHAT_PROXY_URL", "LMCHAT_OFFLINE", "LMCHAT_LOG_LEVEL", "LMCHAT_STREAM_TIMEOUT"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	cfg := fmt.Sprintf("[log]\nfile = %q\n\n[export]\noutput_dir = %q\n", filepath.Join(dir, "lmchat.log"), dir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func newTestRepl(t *testing.T, endpoint string) (*repl, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	client := lmstudio.NewClientWithConfig(&lmstudio.ClientConfig{BaseURL: endpoint})
	t.Cleanup(client.CloseIdleConnections)

	var out, info bytes.Buffer
	return &repl{
		ctrl:      session.NewController(client, nil),
		client:    client,
		loader:    documents.NewLoader(),
		logger:    zap.NewNop(),
		out:       &out,
		info:      &info,
		exportDir: t.TempDir(),
	}, &out, &info
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestModelsCommand(t *testing.T) {
	_, endpoint := newUpstream(t)

	out, _, err := run(t, "", "--endpoint", endpoint, "--model", "qwen", "models")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#  MODEL                SELECTED", lines[0])
	assert.Equal(t, "1  qwen                 *", lines[1])
	assert.Equal(t, "2  llama-3-8b-instruct  ", lines[2])
}

func TestModelsCommandNoModels(t *testing.T) {
	u, endpoint := newUpstream(t)
	u.models = `{"data":[]}`

	_, _, err := run(t, "", "--endpoint", endpoint, "models")
	assert.ErrorIs(t, err, lmstudio.ErrNoModelsFound)
}

func TestInvalidEndpointFlag(t *testing.T) {
	_, _, err := run(t, "", "--endpoint", "ftp://example.com", "models")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestAskStreamsRawToPipe(t *testing.T) {
	u, endpoint := newUpstream(t)

	out, _, err := run(t, "", "--endpoint", endpoint, "--model", "qwen", "ask", "say", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", out)
	assert.Equal(t, "say hi", u.lastPrompt())
}

func TestAskWithFile(t *testing.T) {
	u, endpoint := newUpstream(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("the secret is 42"), 0o644))

	out, stderr, err := run(t, "", "--endpoint", endpoint, "--model", "qwen", "ask", "-f", path, "what is the secret?")
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", out)
	assert.Contains(t, stderr, "Uploaded: notes.txt")

	prompt := u.lastPrompt()
	assert.Contains(t, prompt, "the secret is 42")
	assert.True(t, strings.HasSuffix(prompt, "what is the secret?"))
}

func TestAskPicksFirstModel(t *testing.T) {
	_, endpoint := newUpstream(t)

	out, _, err := run(t, "", "--endpoint", endpoint, "ask", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", out)
}

func TestAskNoModels(t *testing.T) {
	u, endpoint := newUpstream(t)
	u.models = `{"data":[]}`

	_, _, err := run(t, "", "--endpoint", endpoint, "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no models")
}

func TestAskRequiresQuestion(t *testing.T) {
	_, endpoint := newUpstream(t)

	_, _, err := run(t, "   ", "--endpoint", endpoint, "ask")
	require.Error(t, err)
}

func TestAskOfflineSkipsURLFetch(t *testing.T) {
	u, endpoint := newUpstream(t)

	out, _, err := run(t, "", "--endpoint", endpoint, "--model", "qwen", "--offline", "ask", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", out)
	assert.Equal(t, "https://example.com", u.lastPrompt())
}

// =============================================================================
// REPL
// =============================================================================

func TestReplConversation(t *testing.T) {
	_, endpoint := newUpstream(t)
	r, out, _ := newTestRepl(t, endpoint)

	assert.False(t, r.handle(context.Background(), "/models"))
	assert.Equal(t, "qwen", r.model)
	assert.Contains(t, out.String(), "llama-3-8b-instruct")

	out.Reset()
	assert.False(t, r.handle(context.Background(), "hello"))
	assert.Equal(t, "Hi there\n", out.String())

	msgs := r.ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
}

func TestReplWithoutModel(t *testing.T) {
	_, endpoint := newUpstream(t)
	r, _, info := newTestRepl(t, endpoint)

	r.handle(context.Background(), "hello")
	assert.Contains(t, info.String(), "No model selected")
	assert.Empty(t, r.ctrl.Messages())
}

func TestReplModelSwitch(t *testing.T) {
	_, endpoint := newUpstream(t)
	r, out, info := newTestRepl(t, endpoint)
	r.models = []string{"qwen", "llama"}

	r.handle(context.Background(), "/model llama")
	assert.Equal(t, "llama", r.model)

	r.handle(context.Background(), "/model mistral")
	assert.Equal(t, "llama", r.model)
	assert.Contains(t, info.String(), "unknown model mistral")

	out.Reset()
	r.handle(context.Background(), "/model")
	assert.Equal(t, "Model: llama\n", out.String())
}

func TestReplDocuments(t *testing.T) {
	_, endpoint := newUpstream(t)
	r, out, info := newTestRepl(t, endpoint)
	path := filepath.Join(t.TempDir(), "a.md")
	require.NoError(t, os.WriteFile(path, []byte("# A"), 0o644))

	r.handle(context.Background(), "/upload "+path+" "+filepath.Join(t.TempDir(), "missing.md"))
	assert.Equal(t, []string{"a.md"}, r.ctrl.Documents())
	assert.Contains(t, out.String(), "Uploaded: a.md")
	assert.Contains(t, info.String(), "missing.md")

	out.Reset()
	r.handle(context.Background(), "/docs")
	assert.Contains(t, out.String(), "a.md")

	r.handle(context.Background(), "/remove a.md")
	assert.Empty(t, r.ctrl.Documents())

	out.Reset()
	r.handle(context.Background(), "/docs")
	assert.Equal(t, "Nothing attached\n", out.String())
}

func TestReplSaveAndClear(t *testing.T) {
	_, endpoint := newUpstream(t)
	r, out, _ := newTestRepl(t, endpoint)
	r.model = "qwen"

	r.handle(context.Background(), "ping")
	out.Reset()
	r.handle(context.Background(), "/save")
	assert.Contains(t, out.String(), "Saved")

	matches, err := filepath.Glob(filepath.Join(r.exportDir, "conversation-*.md"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "## User\n\nping")

	r.handle(context.Background(), "/clear")
	assert.Empty(t, r.ctrl.Messages())
}

func TestReplQuitAndUnknown(t *testing.T) {
	_, endpoint := newUpstream(t)
	r, _, info := newTestRepl(t, endpoint)

	assert.False(t, r.handle(context.Background(), "/nope"))
	assert.Contains(t, info.String(), "Unknown command /nope")
	assert.False(t, r.handle(context.Background(), "   "))
	assert.True(t, r.handle(context.Background(), "/quit"))
}

func TestCompleteCommand(t *testing.T) {
	assert.Equal(t, []string{"/model", "/models"}, completeCommand("/mod"))
	assert.Nil(t, completeCommand("hello"))
	assert.Nil(t, completeCommand("/upload a"))
}

// =============================================================================
// OUTPUT
// =============================================================================

func TestPrinterReplacement(t *testing.T) {
	var out, info bytes.Buffer
	p := newPrinter(&out, &info)

	p.MessageAdded(model.Message{ID: 0, Role: model.RoleSystem, Content: "Fetching webpage content..."})
	p.MessageAdded(model.Message{ID: 1, Role: model.RoleAssistant})
	p.MessageUpdated(1, "Hel")
	p.MessageUpdated(1, "Hello")
	p.MessageUpdated(1, "Sorry")

	assert.Equal(t, "Hello\nSorry", out.String())
	assert.Equal(t, "[System] Fetching webpage content...\n", info.String())
}

func TestWriteModelTableWideRunes(t *testing.T) {
	var buf bytes.Buffer
	writeModelTable(&buf, []string{"模型", "m"}, "m")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1  模型   ", lines[1])
	assert.Equal(t, "2  m      *", lines[2])
}
