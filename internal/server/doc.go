// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes one chat session over a local HTTP API.
//
// # Endpoints
//
//   - GET    /api/health          - Liveness and session info
//   - GET    /api/models          - Models offered by the inference server
//   - POST   /api/documents       - Upload files (multipart, field "file")
//   - DELETE /api/documents/:name - Remove a document
//   - POST   /api/webpages        - Fetch a URL into the session
//   - POST   /api/chat            - Submit a message; the reply is an SSE stream
//   - DELETE /api/chat            - Stop the running generation
//   - GET    /api/transcript      - The session transcript
//   - DELETE /api/transcript      - Clear the session
//   - GET    /api/export          - Download the transcript (md, json, html)
//
// # Chat events
//
// POST /api/chat answers with text/event-stream. Events, in order:
//
//	message  a transcript message was added (user, system, assistant)
//	delta    {id, delta, content} for each streamed fragment
//	done     generation summary
//	error    generation failed; the assistant message holds the apology
//
// # Middleware
//
// Recovery, request logging (zap), security headers, per-client rate
// limiting and CORS restricted to localhost origins.
package server
