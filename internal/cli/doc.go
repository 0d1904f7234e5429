// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the lmchat command line.
//
// Commands:
//
//	lmchat                 full-screen chat (bubbletea)
//	lmchat ask [question]  one-shot answer, streamed to stdout
//	lmchat chat            line-oriented REPL with history
//	lmchat models          list the inference server's models
//	lmchat serve           local HTTP API with SSE streaming
//
// Global flags override the config file, which overrides the defaults.
// Interactive commands log to ~/.lmchat/lmchat.log unless log.file is set;
// serve logs to stderr.
package cli
