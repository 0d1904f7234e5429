// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session coordinates one chat session: the transcript, the
// attached documents and webpages, and the single in-flight generation.
//
// # Key Types
//
//   - Controller: runs the submit flow and owns session state
//   - Observer: receives transcript changes in order
//   - Outcome: what one Submit produced
//
// # Submit flow
//
//  1. The trimmed input becomes a user message.
//  2. If the input is a URL, the page is fetched and stored. System
//     messages report progress and failures.
//  3. The prompt is assembled from a snapshot of documents and webpages.
//  4. An empty assistant message receives the cumulative response after
//     every delta.
//  5. If generation fails, the assistant message is replaced by a fixed
//     error text.
//
// Only one generation runs at a time; a second Submit returns ErrBusy.
package session
