package host

import (
	"sort"
	"sync"
)

// Templates is the set of template directories contributed by plugins.
type Templates struct {
	mu    sync.RWMutex
	paths map[string]struct{}
}

// NewTemplates returns an empty template registry.
func NewTemplates() *Templates {
	return &Templates{paths: make(map[string]struct{})}
}

// Add registers path. Empty paths are ignored.
func (t *Templates) Add(path string) {
	if path == "" {
		return
	}
	t.mu.Lock()
	t.paths[path] = struct{}{}
	t.mu.Unlock()
}

// Remove unregisters path; unknown paths are ignored.
func (t *Templates) Remove(path string) {
	t.mu.Lock()
	delete(t.paths, path)
	t.mu.Unlock()
}

// Has reports whether path is registered.
func (t *Templates) Has(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.paths[path]
	return ok
}

// Paths returns the registered paths in sorted order.
func (t *Templates) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.paths))
	for p := range t.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
