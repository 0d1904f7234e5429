// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func TestListModels(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    []string
		noModel bool
		failed  bool
	}{
		{name: "two models", status: 200, body: `{"data":[{"id":"m1"},{"id":"m2"}]}`, want: []string{"m1", "m2"}},
		{name: "empty id skipped", status: 200, body: `{"data":[{"id":"m1"},{"id":""}]}`, want: []string{"m1"}},
		{name: "non-string id skipped", status: 200, body: `{"data":[{"id":42},{"id":"m2"},{}]}`, want: []string{"m2"}},
		{name: "empty list", status: 200, body: `{"data":[]}`, noModel: true},
		{name: "missing data", status: 200, body: `{}`, noModel: true},
		{name: "data not an array", status: 200, body: `{"data":"nope"}`, noModel: true},
		{name: "not json", status: 200, body: `<html>`, noModel: true},
		{name: "only invalid ids", status: 200, body: `{"data":[{"id":""},{"id":null}]}`, noModel: true},
		{name: "server error", status: 503, body: `{"error":"loading"}`, failed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := modelServer(t, tt.status, tt.body)
			defer srv.Close()

			models, err := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL}).ListModels(context.Background())

			switch {
			case tt.noModel:
				require.Error(t, err)
				assert.True(t, IsNoModels(err), "got %v", err)
				assert.ErrorIs(t, err, ErrNoModelsFound)
			case tt.failed:
				require.Error(t, err)
				assert.True(t, IsRequestFailed(err))
				assert.Equal(t, tt.status, StatusCode(err))
				assert.Contains(t, err.Error(), "loading")
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, models)
			}
		})
	}
}

func TestListModels_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClientWithConfig(&ClientConfig{BaseURL: url}).ListModels(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnection(err), "got %v", err)
}

func TestListModels_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.ListModels(context.Background())
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestCheckRunning(t *testing.T) {
	srv := modelServer(t, 200, `{"data":[]}`)
	defer srv.Close()

	assert.NoError(t, NewClientWithConfig(&ClientConfig{BaseURL: srv.URL}).CheckRunning(context.Background()))

	down := modelServer(t, http.StatusServiceUnavailable, `{"error":"loading"}`)
	defer down.Close()

	err := NewClientWithConfig(&ClientConfig{BaseURL: down.URL}).CheckRunning(context.Background())
	require.Error(t, err)
	assert.True(t, IsRequestFailed(err))
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
}

func TestNewClientWithConfig_Defaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{})
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Zero(t, c.streamClient.Timeout)
	assert.NotNil(t, c.logger)

	c = NewClientWithConfig(nil)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestClientError(t *testing.T) {
	err := fmt.Errorf("generate: %w", &ClientError{
		Type:    ErrTypeRequestFailed,
		Message: "completion request failed",
		Status:  404,
		Cause:   errors.New("boom"),
	})

	assert.Equal(t, "generate: completion request failed (status 404): boom", err.Error())
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.NotErrorIs(t, err, ErrNoModelsFound)
	assert.Equal(t, 404, StatusCode(err))
	assert.Equal(t, "request_failed", ErrTypeRequestFailed.String())
	assert.Zero(t, StatusCode(errors.New("plain")))
}
