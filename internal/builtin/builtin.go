package builtin

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/plugkeep/plugkeep/internal/platform"
	"github.com/plugkeep/plugkeep/internal/plugin"
)

//go:embed manifests
var manifestFS embed.FS

// Factory constructs a fresh plugin instance.
type Factory func() plugin.Plugin

// Registry holds the compiled-in plugin factories and serves as their
// plugin.Loader.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a registry with every plugin shipped in the binary.
func Default() *Registry {
	r := NewRegistry()
	r.Register("echo", func() plugin.Plugin { return &Echo{} })
	return r
}

// Register adds a factory under module, replacing any previous one.
func (r *Registry) Register(module string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[module] = f
}

// Modules lists the registered module names.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for m := range r.factories {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Check implements plugin.Loader.
func (r *Registry) Check(desc *plugin.Descriptor) error {
	if _, ok := r.factory(desc.Module); !ok {
		return fmt.Errorf("no compiled-in plugin provides module %q", desc.Module)
	}
	return nil
}

// Load implements plugin.Loader.
func (r *Registry) Load(desc *plugin.Descriptor) (plugin.Plugin, error) {
	f, ok := r.factory(desc.Module)
	if !ok {
		return nil, fmt.Errorf("no compiled-in plugin provides module %q", desc.Module)
	}
	p := f()
	if p == nil {
		return nil, fmt.Errorf("factory for module %q returned nil", desc.Module)
	}
	return p, nil
}

func (r *Registry) factory(module string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[module]
	return f, ok
}

// WriteManifests copies the embedded manifests into dir, one
// subdirectory per plugin. Files whose content is already current are left
// alone. It returns the plugin directories written or refreshed.
func WriteManifests(dir string) ([]string, error) {
	entries, err := fs.ReadDir(manifestFS, "manifests")
	if err != nil {
		return nil, fmt.Errorf("reading embedded manifests: %w", err)
	}

	var written []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		srcDir := path.Join("manifests", entry.Name())
		files, err := fs.ReadDir(manifestFS, srcDir)
		if err != nil {
			return written, fmt.Errorf("reading embedded manifest %s: %w", entry.Name(), err)
		}

		outDir := filepath.Join(dir, entry.Name())
		changed := false
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			data, err := fs.ReadFile(manifestFS, path.Join(srcDir, f.Name()))
			if err != nil {
				return written, fmt.Errorf("reading %s: %w", f.Name(), err)
			}
			outPath := filepath.Join(outDir, f.Name())
			if existing, err := os.ReadFile(outPath); err == nil && bytes.Equal(existing, data) {
				continue
			}
			if err := platform.WriteFileAtomic(outPath, data, 0o644, 0o755); err != nil {
				return written, err
			}
			changed = true
		}
		if changed {
			written = append(written, outDir)
		}
	}
	return written, nil
}
