// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownMessage is returned when an id does not name a message.
var ErrUnknownMessage = errors.New("unknown message id")

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the transcript of one session. It is safe for
// concurrent use; readers always receive copies.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	messages []Message
	index    map[int]int
	nextID   int
	now      func() time.Time
}

// NewConversation creates an empty conversation with a generated ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		index:     make(map[int]int),
		now:       time.Now,
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Add appends a message with the next id and returns a copy of it.
func (c *Conversation) Add(role Role, content string) Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := Message{
		ID:        c.nextID,
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
	}
	c.nextID++
	c.index[msg.ID] = len(c.messages)
	c.messages = append(c.messages, msg)
	return msg
}

// AddUser appends a user message.
func (c *Conversation) AddUser(content string) Message {
	return c.Add(RoleUser, content)
}

// AddAssistant appends an empty assistant message to stream into.
func (c *Conversation) AddAssistant() Message {
	return c.Add(RoleAssistant, "")
}

// AddSystem appends a system message.
func (c *Conversation) AddSystem(content string) Message {
	return c.Add(RoleSystem, content)
}

// SetContent replaces the content of message id.
func (c *Conversation) SetContent(id int, content string) error {
	return c.update(id, func(m *Message) { m.Content = content })
}

// MarkFailed replaces the content of message id and flags it as failed.
func (c *Conversation) MarkFailed(id int, content string) error {
	return c.update(id, func(m *Message) {
		m.Content = content
		m.Failed = true
	})
}

// MarkCancelled flags message id as cancelled, keeping its content.
func (c *Conversation) MarkCancelled(id int) error {
	return c.update(id, func(m *Message) { m.Cancelled = true })
}

func (c *Conversation) update(id int, fn func(*Message)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMessage, id)
	}
	fn(&c.messages[i])
	return nil
}

// Get returns a copy of message id.
func (c *Conversation) Get(id int) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return Message{}, false
	}
	return c.messages[i], true
}

// Messages returns a copy of the transcript in id order.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Clear removes every message. Ids keep increasing so they are never reused.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = nil
	c.index = make(map[int]int)
}
