// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// lmchat is a terminal chat client for models served by LM Studio.
package main

import (
	"os"

	"github.com/jeranaias/lmchat/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
