// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Entry is one stored document or webpage.
type Entry struct {
	Key     string
	Content string
}

// Store is an insertion-ordered map of Entry values, safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  *orderedmap.OrderedMap[string, string]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{m: orderedmap.New[string, string]()}
}

// Set stores content under key. An existing key keeps its position and
// replaced reports true.
func (s *Store) Set(key, content string) (replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, replaced = s.m.Set(key, content)
	return replaced
}

// Get returns the content stored under key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Get(key)
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m.Delete(key)
	return ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Len()
}

// Keys returns the keys in insertion order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Snapshot returns a copy of every entry in insertion order.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, Entry{Key: pair.Key, Content: pair.Value})
	}
	return entries
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = orderedmap.New[string, string]()
}
