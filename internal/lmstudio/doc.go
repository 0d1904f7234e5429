// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lmstudio provides the HTTP client for an OpenAI-compatible local
// inference server such as LM Studio.
//
// # Key Types
//
//   - Client: lists models and opens streaming chat completions
//   - Stream: a lazy, non-restartable sequence of text deltas
//   - LineBuffer: splits a chunked body into complete lines
//   - Result: the per-stream fold returned when a stream terminates
//
// # Usage
//
//	client := lmstudio.NewClient()
//	models, err := client.ListModels(ctx)
//
//	stream, err := client.Stream(ctx, models[0], "Hello")
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    delta, err := stream.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(delta.Content)
//	}
//	fmt.Println(stream.Result().Content)
//
// # Cancellation
//
// Cancelling the context passed to Stream closes the response body. No delta
// is returned after cancellation, and Next reports ctx.Err().
package lmstudio
