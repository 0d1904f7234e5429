// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRole_Heading(t *testing.T) {
	assert.Equal(t, "User", RoleUser.Heading())
	assert.Equal(t, "Assistant", RoleAssistant.Heading())
	assert.Equal(t, "System", RoleSystem.Heading())
	assert.Equal(t, "You", RoleUser.DisplayName())
	assert.False(t, Role("tool").Valid())
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_IDsIncreaseFromZero(t *testing.T) {
	c := NewConversation()
	a := c.AddUser("hello")
	b := c.AddSystem("note")
	d := c.AddAssistant()

	assert.Equal(t, 0, a.ID)
	assert.Equal(t, 1, b.ID)
	assert.Equal(t, 2, d.ID)
	assert.NotEmpty(t, c.ID)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, i, m.ID)
	}
}

func TestConversation_SetContent(t *testing.T) {
	c := NewConversation()
	msg := c.AddAssistant()
	assert.True(t, msg.IsEmpty())

	require.NoError(t, c.SetContent(msg.ID, "partial"))
	require.NoError(t, c.SetContent(msg.ID, "partial answer"))

	got, ok := c.Get(msg.ID)
	require.True(t, ok)
	assert.Equal(t, "partial answer", got.Content)

	assert.ErrorIs(t, c.SetContent(99, "x"), ErrUnknownMessage)
}

func TestConversation_MarkFailedAndCancelled(t *testing.T) {
	c := NewConversation()
	a := c.AddAssistant()
	b := c.AddAssistant()

	require.NoError(t, c.MarkFailed(a.ID, "error text"))
	require.NoError(t, c.SetContent(b.ID, "half"))
	require.NoError(t, c.MarkCancelled(b.ID))

	got, _ := c.Get(a.ID)
	assert.True(t, got.Failed)
	assert.Equal(t, "error text", got.Content)

	got, _ = c.Get(b.ID)
	assert.True(t, got.Cancelled)
	assert.Equal(t, "half", got.Content)
}

func TestConversation_MessagesIsACopy(t *testing.T) {
	c := NewConversation()
	c.AddUser("original")

	msgs := c.Messages()
	msgs[0].Content = "mutated"

	got, _ := c.Get(0)
	assert.Equal(t, "original", got.Content)
}

func TestConversation_ClearNeverReusesIDs(t *testing.T) {
	c := NewConversation()
	c.AddUser("a")
	c.AddUser("b")
	c.Clear()

	assert.Zero(t, c.Len())
	_, ok := c.Last()
	assert.False(t, ok)

	next := c.AddUser("c")
	assert.Equal(t, 2, next.ID)
}

func TestConversation_ConcurrentAdds(t *testing.T) {
	c := NewConversation()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.AddUser("x")
		}()
	}
	wg.Wait()

	msgs := c.Messages()
	require.Len(t, msgs, 50)
	for i, m := range msgs {
		assert.Equal(t, i, m.ID, "transcript order equals id order")
	}
}
