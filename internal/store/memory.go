package store

import (
	"fmt"
	"sync"

	"go.yaml.in/yaml/v3"
)

// MemoryStore is a Store without a backing file. Values are round-tripped
// through YAML so callers observe the same copy semantics as FileStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]yaml.Node
	closed  bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]yaml.Node)}
}

// Get implements Store.
func (m *MemoryStore) Get(key string, out any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrClosed
	}
	node, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if err := node.Decode(out); err != nil {
		return true, fmt.Errorf("decoding store key %q: %w", key, err)
	}
	return true, nil
}

// Has implements Store.
func (m *MemoryStore) Has(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.entries[key]
	return ok, nil
}

// Set implements Store.
func (m *MemoryStore) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	var node yaml.Node
	if err := node.Encode(value); err != nil {
		return fmt.Errorf("encoding store key %q: %w", key, err)
	}
	m.entries[key] = node
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.entries, key)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
