// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every LMCHAT_* variable for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LMCHAT_ENDPOINT", "LMCHAT_MODEL", "LMCHAT_PROXY_URL",
		"LMCHAT_OFFLINE", "LMCHAT_LOG_LEVEL", "LMCHAT_STREAM_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://127.0.0.1:1234", cfg.Server.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout())
	assert.Zero(t, cfg.Server.StreamTimeout())
	assert.Equal(t, "https://api.allorigins.win/get", cfg.Web.ProxyURL)
	assert.False(t, cfg.Web.Offline)
	assert.Equal(t, "127.0.0.1:8080", cfg.Serve.Addr)
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromPath_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
endpoint = "http://gpu-box:1234"
default_model = "qwen"
stream_timeout_secs = 120

[web]
offline = true

[ui]
theme = "light"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:1234", cfg.Server.Endpoint)
	assert.Equal(t, "qwen", cfg.Server.DefaultModel)
	assert.Equal(t, 2*time.Minute, cfg.Server.StreamTimeout())
	assert.True(t, cfg.Web.Offline)
	assert.Equal(t, "light", cfg.UI.Theme)
	// Untouched keys keep their defaults.
	assert.Equal(t, 100, cfg.UI.WordWrap)
	assert.Equal(t, 30, cfg.Server.RequestTimeoutSecs)
}

func TestLoadFromPath_UnknownKey(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[server]\nendpont = \"http://x\"\n")
	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.endpont")
}

func TestLoadFromPath_Invalid(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[ui]\ntheme = \"neon\"\nrender_fps = 500\n")
	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, len(verrs))
	for i, v := range verrs {
		fields[i] = v.Field
	}
	assert.ElementsMatch(t, []string{"ui.theme", "ui.render_fps"}, fields)
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LMCHAT_ENDPOINT", "http://localhost:9999")
	t.Setenv("LMCHAT_MODEL", "llama")
	t.Setenv("LMCHAT_OFFLINE", "TRUE")
	t.Setenv("LMCHAT_LOG_LEVEL", "debug")
	t.Setenv("LMCHAT_STREAM_TIMEOUT", "45")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnvOverrides())
	assert.Equal(t, "http://localhost:9999", cfg.Server.Endpoint)
	assert.Equal(t, "llama", cfg.Server.DefaultModel)
	assert.True(t, cfg.Web.Offline)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 45, cfg.Server.StreamTimeoutSecs)

	t.Setenv("LMCHAT_STREAM_TIMEOUT", "soon")
	assert.Error(t, Default().ApplyEnvOverrides())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"endpoint scheme", func(c *Config) { c.Server.Endpoint = "ftp://host" }, "server.endpoint"},
		{"endpoint host", func(c *Config) { c.Server.Endpoint = "http://" }, "server.endpoint"},
		{"request timeout", func(c *Config) { c.Server.RequestTimeoutSecs = 0 }, "server.request_timeout_secs"},
		{"stream timeout", func(c *Config) { c.Server.StreamTimeoutSecs = -1 }, "server.stream_timeout_secs"},
		{"proxy", func(c *Config) { c.Web.ProxyURL = "allorigins" }, "web.proxy_url"},
		{"word wrap", func(c *Config) { c.UI.WordWrap = 5 }, "ui.word_wrap"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"serve addr", func(c *Config) { c.Serve.Addr = "8080" }, "serve.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Server.DefaultModel = "mistral"
	cfg.UI.Theme = "dark"
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfig_Clone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Server.Endpoint = "http://other:1"
	assert.Equal(t, "http://127.0.0.1:1234", cfg.Server.Endpoint)
}

// TestConfig_ConcurrentAccess checks Global and SetGlobal under -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			assert.NotNil(t, Global())
		}()
	}
	wg.Wait()
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	cfg := Default()
	cfg.Server.DefaultModel = "pinned"
	SetGlobal(cfg)
	assert.Equal(t, "pinned", Global().Server.DefaultModel)
}
