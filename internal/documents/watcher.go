// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must be quiet before it is reloaded.
const DefaultDebounce = 300 * time.Millisecond

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// Watcher reloads tracked files when they change on disk and hands the new
// content to a callback. Removal is ignored: a document stays in the session
// until replaced.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	maxSize  int64
	onChange func(Document)
	logger   *zap.Logger

	mu      sync.Mutex
	tracked map[string]bool      // absolute file path
	dirs    map[string]bool      // watched parent directories
	pending map[string]time.Time // file path -> last change time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher. onChange runs on the watcher goroutine.
func NewWatcher(debounce time.Duration, onChange func(Document)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:  fw,
		debounce: debounce,
		maxSize:  DefaultMaxFileSize,
		onChange: onChange,
		logger:   zap.NewNop(),
		tracked:  make(map[string]bool),
		dirs:     make(map[string]bool),
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// WithLogger sets the logger.
func (w *Watcher) WithLogger(logger *zap.Logger) *Watcher {
	if logger != nil {
		w.logger = logger.Named("watcher")
	}
	return w
}

// Add tracks path. Its directory is watched so that editors which replace
// files by rename are still noticed.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirs[dir] {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	w.tracked[abs] = true
	return nil
}

// Tracked returns the number of tracked files.
func (w *Watcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tracked)
}

// Start begins processing events.
func (w *Watcher) Start() {
	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
}

// processEvents processes file system events
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.handleFileChange(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("WATCH_ERROR", zap.Error(err))
		}
	}
}

func (w *Watcher) handleFileChange(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tracked[abs] {
		w.pending[abs] = time.Now()
	}
}

// processPending reloads files whose last change is older than the debounce.
func (w *Watcher) processPending() {
	defer w.wg.Done()

	tick := w.debounce / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var toProcess []string
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					toProcess = append(toProcess, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range toProcess {
				w.reload(path)
			}
		}
	}
}

func (w *Watcher) reload(path string) {
	doc, err := ReadFile(path, w.maxSize)
	if err != nil {
		w.logger.Warn("DOCUMENT_RELOAD_FAILED", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Debug("DOCUMENT_RELOADED", zap.String("name", doc.Name), zap.Int64("bytes", doc.Size))
	if w.onChange != nil {
		w.onChange(doc)
	}
}

// Close stops watching, waits for the event goroutines and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
