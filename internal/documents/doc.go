// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package documents reads files into session documents and watches them for
// changes.
//
// A document is keyed by its base filename, matching what a browser upload
// reports, and holds the file's full text normalised to NFC. Loading many
// files reads them concurrently but returns them in argument order, so
// upload order is preserved.
package documents
