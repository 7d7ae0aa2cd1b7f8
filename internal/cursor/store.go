// Package cursor persists per-view read cursors and classifies records as
// read or unread against them.
package cursor

import "sync"

// Store persists a single timestamp per logical view, keyed by a string
// such as "inbox_last_visit". Implementations are assumed fast and local.
type Store interface {
	// Load returns the persisted cursor for the key. ok is false when no
	// value has been saved yet.
	Load(key string) (value float64, ok bool, err error)

	// Save persists the cursor for the key, overwriting any prior value.
	Save(key string, value float64) error
}

// MemoryStore is an in-process Store, used in tests and for ephemeral runs.
type MemoryStore struct {
	mu      sync.Mutex
	cursors map[string]float64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cursors: make(map[string]float64)}
}

// Load implements Store.
func (s *MemoryStore) Load(key string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.cursors[key]
	return value, ok, nil
}

// Save implements Store.
func (s *MemoryStore) Save(key string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[key] = value
	return nil
}
