// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// MODE MANAGEMENT TESTS
// =============================================================================

func TestSetOfflineMode(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	SetOfflineMode(true)
	assert.True(t, IsOfflineMode())
	assert.Equal(t, "[OFFLINE]", StatusBadge())
	assert.ErrorIs(t, CheckWebFetchAllowed(), ErrWebFetchBlocked)

	SetOfflineMode(false)
	assert.False(t, IsOfflineMode())
	assert.Empty(t, StatusBadge())
	assert.NoError(t, CheckWebFetchAllowed())
}

func TestIsOfflineMode_ThreadSafe(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				SetOfflineMode(j%2 == 0)
				_ = IsOfflineMode()
			}
		}()
	}
	wg.Wait()
}

// =============================================================================
// URL VALIDATION TESTS
// =============================================================================

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST:1234", true},
		{"127.0.0.1", true},
		{"127.0.0.1:1234", true},
		{"127.8.8.8", true},
		{"::1", true},
		{"[::1]:8080", true},
		{"example.com", false},
		{"10.0.0.1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocalhost(tt.host))
		})
	}
}

func TestCheckURL(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	SetOfflineMode(false)
	assert.NoError(t, CheckURL("https://example.com/page"))
	assert.ErrorIs(t, CheckURL("file:///etc/passwd"), ErrInvalidURLScheme)
	assert.ErrorIs(t, CheckURL("javascript:alert(1)"), ErrInvalidURLScheme)
	assert.ErrorIs(t, CheckURL("http://[::1"), ErrInvalidURL)

	SetOfflineMode(true)
	assert.NoError(t, CheckURL("http://127.0.0.1:1234/v1/models"))
	assert.ErrorIs(t, CheckURL("https://api.allorigins.win/get"), ErrNonLocalhost)
}
