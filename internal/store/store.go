// Package store provides the manager's persistent key-value store: a single
// YAML document on disk holding one entry per key, opened and closed with
// the manager's lifetime.
package store

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/plugkeep/plugkeep/internal/platform"
	"go.yaml.in/yaml/v3"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store is a durable mapping from string keys to structured values.
// Get and Set are atomic per key.
type Store interface {
	// Get decodes the value stored under key into out. It reports whether
	// the key existed; out is left untouched when it did not.
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
	Delete(key string) error
	Has(key string) (bool, error)
	Close() error
}

// The store holds plugin configurations, which may carry secrets.
const (
	filePerm os.FileMode = 0o600
	dirPerm  os.FileMode = 0o755
)

// FileStore keeps every entry in memory and rewrites the whole document on
// each mutation through a temp file and rename, so a crash never leaves a
// half-written store behind.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	entries map[string]yaml.Node
	closed  bool
}

// Open loads the store document at path, creating an empty store if the
// file does not exist yet.
func Open(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		entries: make(map[string]yaml.Node),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("parsing store %s: %w", path, err)
	}
	if s.entries == nil {
		s.entries = make(map[string]yaml.Node)
	}
	return s, nil
}

// Path returns the path of the backing document.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(key string, out any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrClosed
	}

	node, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if err := node.Decode(out); err != nil {
		return true, fmt.Errorf("decoding store key %q: %w", key, err)
	}
	return true, nil
}

// Has implements Store.
func (s *FileStore) Has(key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrClosed
	}
	_, ok := s.entries[key]
	return ok, nil
}

// Set implements Store.
func (s *FileStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	var node yaml.Node
	if err := node.Encode(value); err != nil {
		return fmt.Errorf("encoding store key %q: %w", key, err)
	}

	prev, existed := s.entries[key]
	s.entries[key] = node
	if err := s.flush(); err != nil {
		if existed {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return err
	}
	return nil
}

// Delete implements Store. Deleting a missing key is a no-op.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	prev, existed := s.entries[key]
	if !existed {
		return nil
	}
	delete(s.entries, key)
	if err := s.flush(); err != nil {
		s.entries[key] = prev
		return err
	}
	return nil
}

// Close releases the store. Further operations return ErrClosed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// flush writes the document atomically. Must be called with mu held.
func (s *FileStore) flush() error {
	data, err := yaml.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("marshaling store: %w", err)
	}

	if err := platform.WriteFileAtomic(s.path, data, filePerm, dirPerm); err != nil {
		return fmt.Errorf("saving store: %w", err)
	}
	return nil
}
