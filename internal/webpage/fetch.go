// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package webpage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/offline"
)

const (
	// DefaultProxyURL is the public allorigins endpoint.
	DefaultProxyURL = "https://api.allorigins.win/get"

	// DefaultTimeout bounds one fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes caps the proxy response size (10MB).
	DefaultMaxBytes = 10 * 1024 * 1024
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrFetchFailed matches every error returned by Fetch.
var ErrFetchFailed = errors.New("webpage fetch failed")

// FetchError describes a failed fetch. Status is the proxy's HTTP status
// when the proxy answered with a non-2xx code.
type FetchError struct {
	URL    string
	Status int
	Reason string
	Cause  error
}

func (e *FetchError) Error() string {
	switch {
	case e.Cause != nil && e.Reason != "":
		return e.Reason + ": " + e.Cause.Error()
	case e.Cause != nil:
		return e.Cause.Error()
	case e.Status != 0:
		return fmt.Sprintf("%s (status %d)", e.Reason, e.Status)
	default:
		return e.Reason
	}
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrFetchFailed) hold for any FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsValidURL reports whether s parses as an absolute URL: a scheme followed
// by a host or an opaque part. Input containing whitespace is never a URL,
// so chat text such as "Note: call Bob" is not mistaken for one.
func IsValidURL(s string) bool {
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != "" || u.Path != ""
}

// =============================================================================
// FETCHER
// =============================================================================

// Config configures a Fetcher.
type Config struct {
	// ProxyURL is the proxy endpoint (default: DefaultProxyURL)
	ProxyURL string

	// Timeout bounds one fetch (default: 30s)
	Timeout time.Duration

	// MaxBytes caps the proxy response body (default: 10MB)
	MaxBytes int64

	// HTTPClient overrides the transport.
	HTTPClient *http.Client
}

// Fetcher retrieves page text through the proxy. It is safe for concurrent use.
type Fetcher struct {
	proxyURL   string
	maxBytes   int64
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFetcher creates a Fetcher, filling zero config values with defaults.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.ProxyURL == "" {
		cfg.ProxyURL = DefaultProxyURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	client := http.Client{}
	if cfg.HTTPClient != nil {
		client = *cfg.HTTPClient
	}
	client.Timeout = cfg.Timeout

	return &Fetcher{
		proxyURL:   cfg.ProxyURL,
		maxBytes:   cfg.MaxBytes,
		httpClient: &client,
		logger:     zap.NewNop(),
	}
}

// WithLogger sets the logger.
func (f *Fetcher) WithLogger(logger *zap.Logger) *Fetcher {
	if logger != nil {
		f.logger = logger.Named("webpage")
	}
	return f
}

// proxyResponse is the subset of the proxy's JSON that is used.
type proxyResponse struct {
	Contents *string `json:"contents"`
	Status   *struct {
		HTTPCode int `json:"http_code"`
	} `json:"status,omitempty"`
}

// Fetch returns the raw contents of target as reported by the proxy.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	if offline.IsOfflineMode() {
		if err := offline.CheckURL(f.proxyURL); err != nil {
			return "", &FetchError{URL: target, Cause: offline.ErrWebFetchBlocked}
		}
	}

	u, err := url.Parse(f.proxyURL)
	if err != nil {
		return "", &FetchError{URL: target, Reason: "invalid proxy URL", Cause: err}
	}
	q := u.Query()
	q.Set("url", target)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &FetchError{URL: target, Reason: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Warn("WEBPAGE_FETCH_FAILED", zap.String("url", target), zap.Error(err))
		return "", &FetchError{URL: target, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Warn("WEBPAGE_FETCH_FAILED", zap.String("url", target), zap.Int("status", resp.StatusCode))
		return "", &FetchError{URL: target, Status: resp.StatusCode, Reason: "proxy returned an error"}
	}

	var body proxyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, f.maxBytes)).Decode(&body); err != nil {
		return "", &FetchError{URL: target, Reason: "invalid proxy response", Cause: err}
	}
	if body.Contents == nil {
		return "", &FetchError{URL: target, Reason: "proxy response has no contents"}
	}
	if body.Status != nil && body.Status.HTTPCode >= 400 {
		f.logger.Warn("WEBPAGE_UPSTREAM_STATUS", zap.String("url", target), zap.Int("status", body.Status.HTTPCode))
	}

	f.logger.Debug("WEBPAGE_FETCHED",
		zap.String("url", target),
		zap.Int("bytes", len(*body.Contents)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return *body.Contents, nil
}
