package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for development and tests. Entries are
// only discarded by overwrite; staleness is the Cache's job.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

// Get returns the entry for key, or (nil, nil) when absent.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Put stores payload under key, overwriting any previous entry.
func (s *MemoryStore) Put(ctx context.Context, key string, payload json.RawMessage, cachedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy so later mutation of the caller's buffer cannot corrupt the store.
	stored := make(json.RawMessage, len(payload))
	copy(stored, payload)
	s.entries[key] = Entry{Payload: stored, CachedAt: cachedAt}
	return nil
}

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
