// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxFileSize is the largest document accepted (5MB).
	DefaultMaxFileSize = 5 * 1024 * 1024

	// DefaultConcurrency bounds parallel file reads.
	DefaultConcurrency = 4
)

var (
	// ErrTooLarge is returned for files above the size limit.
	ErrTooLarge = errors.New("file exceeds size limit")

	// ErrBinary is returned for files that do not look like text.
	ErrBinary = errors.New("file appears to be binary")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is one loaded file.
type Document struct {
	Name    string
	Path    string
	Content string
	Size    int64
}

// LoadError records a file that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// =============================================================================
// DECODING
// =============================================================================

// Decode turns raw file bytes into document text: a UTF-8 BOM is dropped,
// invalid sequences become U+FFFD and the result is NFC-normalised.
func Decode(raw []byte) (string, error) {
	if bytes.IndexByte(raw, 0) >= 0 {
		return "", ErrBinary
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	return norm.NFC.String(text), nil
}

// FromReader reads a document named name from r, enforcing maxSize.
func FromReader(name string, r io.Reader, maxSize int64) (Document, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	raw, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return Document{}, err
	}
	if int64(len(raw)) > maxSize {
		return Document{}, ErrTooLarge
	}
	content, err := Decode(raw)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: filepath.Base(name), Content: content, Size: int64(len(raw))}, nil
}

// ReadFile loads a single document from path.
func ReadFile(path string, maxSize int64) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Document{}, err
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%s is a directory", path)
	}

	doc, err := FromReader(filepath.Base(path), f, maxSize)
	if err != nil {
		return Document{}, err
	}
	doc.Path = path
	return doc, nil
}

// =============================================================================
// LOADER
// =============================================================================

// Loader reads documents from disk.
type Loader struct {
	MaxFileSize int64
	Concurrency int
	logger      *zap.Logger
}

// NewLoader creates a Loader with default limits.
func NewLoader() *Loader {
	return &Loader{
		MaxFileSize: DefaultMaxFileSize,
		Concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
}

// WithLogger sets the logger.
func (l *Loader) WithLogger(logger *zap.Logger) *Loader {
	if logger != nil {
		l.logger = logger.Named("documents")
	}
	return l
}

// Load reads every path concurrently and returns the documents that loaded,
// in argument order. Files that fail are skipped; their errors are joined
// into the returned error as *LoadError values.
func (l *Loader) Load(ctx context.Context, paths []string) ([]Document, error) {
	results := make([]Document, len(paths))
	errs := make([]error, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	limit := l.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = &LoadError{Path: path, Err: err}
				return nil
			}
			doc, err := ReadFile(path, l.MaxFileSize)
			if err != nil {
				errs[i] = &LoadError{Path: path, Err: err}
				l.logger.Warn("DOCUMENT_LOAD_FAILED", zap.String("path", path), zap.Error(err))
				return nil
			}
			results[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]Document, 0, len(paths))
	for i := range paths {
		if errs[i] == nil {
			docs = append(docs, results[i])
		}
	}
	l.logger.Debug("DOCUMENTS_LOADED", zap.Int("loaded", len(docs)), zap.Int("requested", len(paths)))
	return docs, errors.Join(errs...)
}
