package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/plugkeep/plugkeep/internal/store"
)

// Store keys owned by the registries.
const (
	KeyBlacklist = "bl_plugins"
	KeyConfigs   = "configs"
	KeyRepos     = "repos"
)

// Blacklist is the durable, ordered set of plugin names excluded from
// automatic activation. Manual activation ignores it.
type Blacklist struct {
	mu    sync.Mutex
	store store.Store
}

// NewBlacklist returns a blacklist persisted under KeyBlacklist in s.
func NewBlacklist(s store.Store) *Blacklist {
	return &Blacklist{store: s}
}

// Add appends name to the blacklist. It reports false when name was
// already present, in which case nothing is written.
func (b *Blacklist) Add(name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names, err := b.load()
	if err != nil {
		return false, err
	}
	if slices.Contains(names, name) {
		return false, nil
	}
	if err := b.store.Set(KeyBlacklist, append(names, name)); err != nil {
		return false, fmt.Errorf("saving blacklist: %w", err)
	}
	return true, nil
}

// Remove deletes name from the blacklist. It reports false when name was
// not blacklisted.
func (b *Blacklist) Remove(name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names, err := b.load()
	if err != nil {
		return false, err
	}
	idx := slices.Index(names, name)
	if idx < 0 {
		return false, nil
	}
	if err := b.store.Set(KeyBlacklist, slices.Delete(names, idx, idx+1)); err != nil {
		return false, fmt.Errorf("saving blacklist: %w", err)
	}
	return true, nil
}

// Contains reports whether name is blacklisted.
func (b *Blacklist) Contains(name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names, err := b.load()
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// List returns the blacklisted names in insertion order.
func (b *Blacklist) List() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

func (b *Blacklist) load() ([]string, error) {
	var names []string
	if _, err := b.store.Get(KeyBlacklist, &names); err != nil {
		return nil, fmt.Errorf("loading blacklist: %w", err)
	}
	return names, nil
}
