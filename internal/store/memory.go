package store

import "sync"

// MemoryStore is an in-memory Store implementation. Used in tests and as
// the backend when persistence is disabled.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
	}
}

// Get returns the value for key, or ErrNotFound.
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy so callers cannot mutate stored state.
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

// Set writes the value for key.
func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	m.values[key] = cp
	return nil
}

// Delete removes the value for key.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
