// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: the ordered transcript of one session
//   - Message: a single message with an integer id, role and content
//   - Role: user, assistant or system
//
// Message ids come from a per-conversation counter. They start at 0, grow
// by one per message, and are never reused, so transcript order equals id
// order.
//
// # Usage
//
//	conv := model.NewConversation()
//	user := conv.Add(model.RoleUser, "Hello!")
//	reply := conv.Add(model.RoleAssistant, "")
//	conv.SetContent(reply.ID, "Hi there")
package model
