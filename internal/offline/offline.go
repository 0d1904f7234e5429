// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNonLocalhost means a remote host was addressed while offline.
	ErrNonLocalhost = errors.New("offline: remote hosts are not reachable")

	// ErrWebFetchBlocked means a webpage fetch was attempted while offline.
	ErrWebFetchBlocked = errors.New("offline: webpage fetching is turned off")

	ErrInvalidURLScheme = errors.New("url scheme must be http or https")
	ErrInvalidURL       = errors.New("malformed url")
)

// =============================================================================
// MODE MANAGEMENT
// =============================================================================

var enabled atomic.Bool

// SetOfflineMode switches offline mode for the whole process.
func SetOfflineMode(on bool) {
	enabled.Store(on)
}

// IsOfflineMode reports whether offline mode is on.
func IsOfflineMode() bool {
	return enabled.Load()
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost reports whether host names the loopback interface. The host
// may carry a port and IPv6 brackets.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// CheckURL rejects anything but http(s), and remote hosts while offline.
func CheckURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ErrInvalidURLScheme
	}
	if IsOfflineMode() && !IsLocalhost(u.Host) {
		return ErrNonLocalhost
	}
	return nil
}

// CheckWebFetchAllowed returns ErrWebFetchBlocked while offline.
func CheckWebFetchAllowed() error {
	if IsOfflineMode() {
		return ErrWebFetchBlocked
	}
	return nil
}

// StatusBadge is the header badge; empty while online.
func StatusBadge() string {
	if IsOfflineMode() {
		return "[OFFLINE]"
	}
	return ""
}
