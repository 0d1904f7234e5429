// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt builds the text sent to the model from the user's message
// and the documents and webpages attached to the session.
//
// Documents and webpages live in a Store, an insertion-ordered map keyed by
// filename or URL. Re-adding a key replaces its content in place. A request
// assembles from a Snapshot, so later uploads never change a prompt that is
// already in flight.
//
// The context block is unbounded: every stored entry is included in full.
package prompt
