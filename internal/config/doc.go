// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for lmchat.
//
// Configuration is read from ~/.lmchat/config.toml when present, then
// LMCHAT_* environment variables are applied, then command-line flags.
// A missing file is not an error.
//
// # Example
//
//	[server]
//	endpoint = "http://127.0.0.1:1234"
//	default_model = "qwen2.5-7b-instruct"
//	stream_timeout_secs = 300
//
//	[web]
//	offline = false
//
//	[ui]
//	theme = "auto"
//	word_wrap = 100
//
// # Environment Variables
//
//   - LMCHAT_ENDPOINT: server.endpoint
//   - LMCHAT_MODEL: server.default_model
//   - LMCHAT_PROXY_URL: web.proxy_url
//   - LMCHAT_OFFLINE: web.offline ("1" or "true")
//   - LMCHAT_LOG_LEVEL: log.level
//   - LMCHAT_STREAM_TIMEOUT: server.stream_timeout_secs
package config
