// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// =============================================================================
// DECODING TESTS
// =============================================================================

func TestDecode(t *testing.T) {
	got, err := Decode([]byte("\xEF\xBB\xBFhello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", got, "BOM is dropped")

	// e + combining acute accent composes to a single rune.
	got, err = Decode([]byte("cafe\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", got)

	got, err = Decode([]byte("bad\xffbyte"))
	require.NoError(t, err)
	assert.Equal(t, "bad\uFFFDbyte", got)

	_, err = Decode([]byte("bin\x00ary"))
	assert.ErrorIs(t, err, ErrBinary)
}

func TestFromReader_SizeLimit(t *testing.T) {
	_, err := FromReader("big.txt", strings.NewReader("12345"), 4)
	assert.ErrorIs(t, err, ErrTooLarge)

	doc, err := FromReader("dir/ok.txt", strings.NewReader("1234"), 4)
	require.NoError(t, err)
	assert.Equal(t, "ok.txt", doc.Name)
	assert.Equal(t, int64(4), doc.Size)
}

// =============================================================================
// LOADER TESTS
// =============================================================================

func TestLoader_KeepsArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"c.txt", "a.txt", "b.txt", "e.txt", "d.txt"} {
		paths = append(paths, writeFile(t, dir, name, "content of "+name))
	}

	docs, err := NewLoader().Load(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, docs, 5)
	for i, d := range docs {
		assert.Equal(t, filepath.Base(paths[i]), d.Name)
		assert.Equal(t, "content of "+d.Name, d.Content)
		assert.Equal(t, paths[i], d.Path)
	}
}

func TestLoader_SkipsFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.md", "# ok")
	missing := filepath.Join(dir, "missing.md")
	binary := writeFile(t, dir, "image.png", "\x89PNG\x00\x00")

	docs, err := NewLoader().Load(context.Background(), []string{missing, good, binary, dir})
	require.Error(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.md", docs[0].Name)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, ErrBinary)
	assert.Contains(t, err.Error(), "missing.md")
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "v1")
	other := writeFile(t, dir, "ignored.txt", "x")

	changes := make(chan Document, 4)
	w, err := NewWatcher(20*time.Millisecond, func(d Document) { changes <- d })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Add(path))
	assert.Equal(t, 1, w.Tracked())
	w.Start()

	require.NoError(t, os.WriteFile(other, []byte("y"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	select {
	case d := <-changes:
		assert.Equal(t, "notes.txt", d.Name)
		assert.Equal(t, "v2", d.Content)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatcher_CloseStopsGoroutines(t *testing.T) {
	w, err := NewWatcher(0, nil)
	require.NoError(t, err)
	w.Start()
	require.NoError(t, w.Close())
}
