// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/lmchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete lmchat configuration.
type Config struct {
	Server ServerConfig `toml:"server" json:"server"`
	Web    WebConfig    `toml:"web" json:"web"`
	UI     UIConfig     `toml:"ui" json:"ui"`
	Export ExportConfig `toml:"export" json:"export"`
	Log    LogConfig    `toml:"log" json:"log"`
	Serve  ServeConfig  `toml:"serve" json:"serve"`
}

// ServerConfig describes the LM Studio server.
type ServerConfig struct {
	// Endpoint is the server root, without /v1.
	Endpoint string `toml:"endpoint" json:"endpoint"`

	// DefaultModel is used when no model is selected. Empty means the first
	// model the server lists.
	DefaultModel string `toml:"default_model" json:"default_model"`

	// RequestTimeoutSecs bounds non-streaming requests.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`

	// StreamTimeoutSecs bounds a whole completion. 0 disables the limit.
	StreamTimeoutSecs int `toml:"stream_timeout_secs" json:"stream_timeout_secs"`
}

// WebConfig controls webpage fetching.
type WebConfig struct {
	ProxyURL         string `toml:"proxy_url" json:"proxy_url"`
	FetchTimeoutSecs int    `toml:"fetch_timeout_secs" json:"fetch_timeout_secs"`

	// Offline blocks every non-localhost request.
	Offline bool `toml:"offline" json:"offline"`
}

// UIConfig controls the terminal interface.
type UIConfig struct {
	Theme     string `toml:"theme" json:"theme"` // auto, dark, light, notty
	WordWrap  int    `toml:"word_wrap" json:"word_wrap"`
	RenderFPS int    `toml:"render_fps" json:"render_fps"`
}

// ExportConfig controls exported files.
type ExportConfig struct {
	OutputDir string `toml:"output_dir" json:"output_dir"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level" json:"level"` // debug, info, warn, error
	File  string `toml:"file" json:"file"`
}

// ServeConfig controls the local HTTP API.
type ServeConfig struct {
	Addr string `toml:"addr" json:"addr"`
}

// RequestTimeout returns the request timeout as a duration.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}

// StreamTimeout returns the completion limit; zero means none.
func (s ServerConfig) StreamTimeout() time.Duration {
	return time.Duration(s.StreamTimeoutSecs) * time.Second
}

// FetchTimeout returns the webpage fetch timeout.
func (w WebConfig) FetchTimeout() time.Duration {
	return time.Duration(w.FetchTimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Endpoint:           "http://127.0.0.1:1234",
			RequestTimeoutSecs: 30,
			StreamTimeoutSecs:  0,
		},
		Web: WebConfig{
			ProxyURL:         "https://api.allorigins.win/get",
			FetchTimeoutSecs: 30,
		},
		UI: UIConfig{
			Theme:     "auto",
			WordWrap:  100,
			RenderFPS: 30,
		},
		Export: ExportConfig{
			OutputDir: ".",
		},
		Log: LogConfig{
			Level: "info",
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the lmchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".lmchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath returns the REPL history file path.
func HistoryPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.lmchat/config.toml if it exists, applies environment
// overrides and validates the result.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path. A missing file yields the
// defaults with environment overrides applied.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills zero values that must not stay zero.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Server.Endpoint == "" {
		c.Server.Endpoint = d.Server.Endpoint
	}
	if c.Server.RequestTimeoutSecs == 0 {
		c.Server.RequestTimeoutSecs = d.Server.RequestTimeoutSecs
	}
	if c.Web.ProxyURL == "" {
		c.Web.ProxyURL = d.Web.ProxyURL
	}
	if c.Web.FetchTimeoutSecs == 0 {
		c.Web.FetchTimeoutSecs = d.Web.FetchTimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}
	if c.UI.RenderFPS == 0 {
		c.UI.RenderFPS = d.UI.RenderFPS
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = d.Export.OutputDir
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = d.Serve.Addr
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# lmchat configuration file")
	fmt.Fprintln(&buf, "# Environment variables (LMCHAT_*) override these values.")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	validThemes    = map[string]bool{"auto": true, "dark": true, "light": true, "notty": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate checks the configuration. The error is ValidationErrors.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if err := validateHTTPURL(c.Server.Endpoint); err != nil {
		add("server.endpoint", "%v", err)
	}
	if c.Server.RequestTimeoutSecs < 1 || c.Server.RequestTimeoutSecs > 3600 {
		add("server.request_timeout_secs", "must be between 1 and 3600, got %d", c.Server.RequestTimeoutSecs)
	}
	if c.Server.StreamTimeoutSecs < 0 {
		add("server.stream_timeout_secs", "must not be negative, got %d", c.Server.StreamTimeoutSecs)
	}

	if err := validateHTTPURL(c.Web.ProxyURL); err != nil {
		add("web.proxy_url", "%v", err)
	}
	if c.Web.FetchTimeoutSecs < 1 || c.Web.FetchTimeoutSecs > 600 {
		add("web.fetch_timeout_secs", "must be between 1 and 600, got %d", c.Web.FetchTimeoutSecs)
	}

	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light, notty", c.UI.Theme)
	}
	if c.UI.WordWrap < 20 || c.UI.WordWrap > 1000 {
		add("ui.word_wrap", "must be between 20 and 1000, got %d", c.UI.WordWrap)
	}
	if c.UI.RenderFPS < 1 || c.UI.RenderFPS > 120 {
		add("ui.render_fps", "must be between 1 and 120, got %d", c.UI.RenderFPS)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}

	if _, _, err := net.SplitHostPort(c.Serve.Addr); err != nil {
		add("serve.addr", "invalid address '%s': %v", c.Serve.Addr, err)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LMCHAT_* environment variables. It fails only
// when a numeric variable does not parse.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("LMCHAT_ENDPOINT"); v != "" {
		c.Server.Endpoint = v
	}
	if v := os.Getenv("LMCHAT_MODEL"); v != "" {
		c.Server.DefaultModel = v
	}
	if v := os.Getenv("LMCHAT_PROXY_URL"); v != "" {
		c.Web.ProxyURL = v
	}
	if v := os.Getenv("LMCHAT_OFFLINE"); v != "" {
		c.Web.Offline = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("LMCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LMCHAT_STREAM_TIMEOUT"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LMCHAT_STREAM_TIMEOUT: %w", err)
		}
		c.Server.StreamTimeoutSecs = secs
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns an indented JSON form for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
