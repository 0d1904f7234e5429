// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export_test

import (
	"fmt"
	"time"

	"github.com/jeranaias/lmchat/internal/export"
	"github.com/jeranaias/lmchat/internal/model"
)

func ExampleDefaultFilename() {
	t := time.Date(2025, 3, 14, 15, 9, 26, 535_000_000, time.UTC)
	fmt.Println(export.DefaultFilename(t))
	// Output: conversation-2025-03-14T15-09-26-535Z.md
}

func ExampleCodeBlocks() {
	md := "Try this:\n\n```sh\necho hi\n```\n"
	for _, b := range export.CodeBlocks(md) {
		fmt.Printf("%s: %q\n", b.Language, b.Code)
	}
	// Output: sh: "echo hi\n"
}

func ExampleMarkdownExporter_Export() {
	conv := &export.Conversation{
		ID: "example",
		Messages: []model.Message{
			{ID: 0, Role: model.RoleUser, Content: "How do I print in Go?"},
			{ID: 1, Role: model.RoleAssistant, Content: "Use `fmt`:\n\n```go\nfmt.Println(\"hi\")\n```"},
		},
	}

	out, err := export.NewMarkdownExporter(nil).Export(conv)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Print(string(out))
	// Output:
	// ## User
	//
	// How do I print in Go?
	//
	// ## Assistant
	//
	// Use `fmt`:
	//
	// ```go
	// fmt.Println("hi")
	// ```
}
