// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package webpage retrieves the raw text of a URL through a CORS-proxy style
// endpoint that wraps the target page in JSON.
//
// The proxy is called as GET {proxy}?url=<escaped target> and must answer
// with an object whose "contents" field holds the page. The default proxy
// is https://api.allorigins.win/get.
//
// Every failure is a *FetchError, and errors.Is(err, ErrFetchFailed) holds.
package webpage
