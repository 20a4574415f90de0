// Package memory provides an in-process storage backend.
package memory

import (
	"sync"

	"tasksphere/internal/storage"
)

// Store keeps entries in a map. A zero quota means unlimited.
type Store struct {
	mu      sync.RWMutex
	entries map[string]string
	used    int64
	quota   int64
}

// New returns an empty store limited to quota bytes.
func New(quota int64) *Store {
	return &Store{entries: make(map[string]string), quota: quota}
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

// Set writes value under key unless it would exceed the quota.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.used + storage.EntrySize(key, value)
	if old, ok := s.entries[key]; ok {
		next -= storage.EntrySize(key, old)
	}
	if s.quota > 0 && next > s.quota {
		return storage.ErrQuotaExceeded
	}
	s.entries[key] = value
	s.used = next
	return nil
}

// Remove deletes key; removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[key]; ok {
		s.used -= storage.EntrySize(key, old)
		delete(s.entries, key)
	}
	return nil
}

// Clear drops every entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]string)
	s.used = 0
	return nil
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
