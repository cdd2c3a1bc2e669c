package registry

import (
	"fmt"
	"sync"

	"github.com/plugkeep/plugkeep/internal/plugin"
	"github.com/plugkeep/plugkeep/internal/store"
)

// Configs persists per-plugin configurations. Values are stored as given;
// they are validated only when a plugin is activated.
type Configs struct {
	mu    sync.Mutex
	store store.Store
}

// NewConfigs returns the configuration registry backed by s, creating the
// empty configs entry if the store has none yet.
func NewConfigs(s store.Store) (*Configs, error) {
	has, err := s.Has(KeyConfigs)
	if err != nil {
		return nil, fmt.Errorf("checking configs: %w", err)
	}
	if !has {
		if err := s.Set(KeyConfigs, map[string]plugin.Config{}); err != nil {
			return nil, fmt.Errorf("initializing configs: %w", err)
		}
	}
	return &Configs{store: s}, nil
}

// Get returns the stored configuration for name, or nil when none is set.
func (c *Configs) Get(name string) (plugin.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	all, err := c.load()
	if err != nil {
		return nil, err
	}
	return all[name], nil
}

// Set stores cfg for name. A nil cfg removes the entry.
func (c *Configs) Set(name string, cfg plugin.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	all, err := c.load()
	if err != nil {
		return err
	}
	if cfg == nil {
		delete(all, name)
	} else {
		all[name] = cfg
	}
	if err := c.store.Set(KeyConfigs, all); err != nil {
		return fmt.Errorf("saving configuration for %s: %w", name, err)
	}
	return nil
}

// All returns every stored configuration keyed by plugin name.
func (c *Configs) All() (map[string]plugin.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

func (c *Configs) load() (map[string]plugin.Config, error) {
	all := make(map[string]plugin.Config)
	if _, err := c.store.Get(KeyConfigs, &all); err != nil {
		return nil, fmt.Errorf("loading configs: %w", err)
	}
	if all == nil {
		all = make(map[string]plugin.Config)
	}
	return all, nil
}
