package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/plugkeep/plugkeep/internal/plugin"
	"github.com/plugkeep/plugkeep/internal/store"
)

// Repos is the durable inventory of installed plugin repositories keyed by
// their directory name.
type Repos struct {
	mu    sync.Mutex
	store store.Store
}

// NewRepos returns the repository registry backed by s.
func NewRepos(s store.Store) *Repos {
	return &Repos{store: s}
}

// Get returns the repository registered as name.
func (r *Repos) Get(name string) (plugin.Repository, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return plugin.Repository{}, false, err
	}
	repo, ok := all[name]
	return repo, ok, nil
}

// Put records repo, replacing any entry with the same name.
func (r *Repos) Put(repo plugin.Repository) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return err
	}
	all[repo.Name] = repo
	if err := r.store.Set(KeyRepos, all); err != nil {
		return fmt.Errorf("saving repository %s: %w", repo.Name, err)
	}
	return nil
}

// Remove drops the entry for name. It reports false when there was none.
func (r *Repos) Remove(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return false, err
	}
	if _, ok := all[name]; !ok {
		return false, nil
	}
	delete(all, name)
	if err := r.store.Set(KeyRepos, all); err != nil {
		return false, fmt.Errorf("removing repository %s: %w", name, err)
	}
	return true, nil
}

// List returns all repositories sorted by name.
func (r *Repos) List() ([]plugin.Repository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]plugin.Repository, 0, len(all))
	for _, repo := range all {
		out = append(out, repo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Repos) load() (map[string]plugin.Repository, error) {
	all := make(map[string]plugin.Repository)
	if _, err := r.store.Get(KeyRepos, &all); err != nil {
		return nil, fmt.Errorf("loading repositories: %w", err)
	}
	if all == nil {
		all = make(map[string]plugin.Repository)
	}
	for name, repo := range all {
		if repo.Name == "" {
			repo.Name = name
			all[name] = repo
		}
	}
	return all, nil
}
