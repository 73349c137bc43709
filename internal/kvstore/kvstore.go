// Package kvstore provides the ordered in-memory key/value store exposed to
// guest modules as a host capability.
package kvstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/modware/udfhost/pkg/wire"
)

// Store is an ordered key/value store over wire values. Safe for concurrent
// use by multiple module instances.
type Store struct {
	mu   sync.RWMutex
	data map[string]wire.Value
}

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[string]wire.Value)}
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (wire.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value wire.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
}

// Del removes key. Removing an absent key is not an error.
func (s *Store) Del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

// Exists reports whether key is present.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[key]
	return ok
}

// Keys returns all keys with the given prefix in lexicographic order. An
// empty prefix lists every key.
func (s *Store) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return keys
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}
