// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline implements the process-wide offline switch.
//
// When offline mode is on, only loopback hosts may be contacted: the local
// inference server keeps working, while webpage fetches through the remote
// proxy are refused with ErrWebFetchBlocked.
//
// # Usage
//
//	offline.SetOfflineMode(cfg.Web.Offline)
//
//	if err := offline.CheckURL(target); err != nil {
//		return err
//	}
package offline
