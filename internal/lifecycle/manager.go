package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/plugkeep/plugkeep/internal/plugin"
	"github.com/plugkeep/plugkeep/internal/registry"
	"github.com/plugkeep/plugkeep/internal/repo"
)

// Manager owns the plugin instances of one process.
type Manager struct {
	// opMu serializes every mutating operation.
	opMu sync.Mutex
	// mu guards instances for readers.
	mu        sync.RWMutex
	instances map[string]*instance

	opts      Options
	log       hclog.Logger
	blacklist *registry.Blacklist
	configs   *registry.Configs
	repos     *registry.Repos
}

// New builds a manager. Options.Store and Options.Locator are required;
// a nil Router or Templates gets an inert stand-in.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("lifecycle: a store is required")
	}
	if opts.Locator == nil {
		return nil, errors.New("lifecycle: a locator is required")
	}
	if opts.Router == nil {
		opts.Router = nopRouter{}
	}
	if opts.Templates == nil {
		opts.Templates = nopTemplates{}
	}
	if opts.CommandPrefix == "" {
		opts.CommandPrefix = "!"
	}
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}

	configs, err := registry.NewConfigs(opts.Store)
	if err != nil {
		return nil, err
	}

	return &Manager{
		instances: make(map[string]*instance),
		opts:      opts,
		log:       log.Named("manager"),
		blacklist: registry.NewBlacklist(opts.Store),
		configs:   configs,
		repos:     registry.NewRepos(opts.Store),
	}, nil
}

// Close releases the store. Plugins should be deactivated first.
func (m *Manager) Close() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.log.Info("shutdown")
	return m.opts.Store.Close()
}

// List returns a snapshot of every known plugin sorted by name.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns every known plugin name, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.namesLocked(func(*instance) bool { return true })
}

// ListActive returns the names of activated plugins, sorted.
func (m *Manager) ListActive() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.namesLocked(func(i *instance) bool { return i.state == plugin.StateActivated })
}

// ActivePlugins returns the live activated plugins ordered by name.
func (m *Manager) ActivePlugins() []plugin.Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := m.namesLocked(func(i *instance) bool { return i.state == plugin.StateActivated })
	out := make([]plugin.Plugin, 0, len(names))
	for _, n := range names {
		out = append(out, m.instances[n].live)
	}
	return out
}

// Get returns the snapshot of one plugin.
func (m *Manager) Get(name string) (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[name]
	if !ok {
		return Info{}, false
	}
	return inst.info(), true
}

func (m *Manager) namesLocked(keep func(*instance) bool) []string {
	var out []string
	for name, inst := range m.instances {
		if keep(inst) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// lookup returns the instance for name. Callers hold opMu, so the
// returned pointer stays valid for the whole operation.
func (m *Manager) lookup(name string) (*instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[name]
	return inst, ok
}

// publish applies fn to inst under the state lock.
func (m *Manager) publish(inst *instance, fn func(*instance)) {
	m.mu.Lock()
	fn(inst)
	m.mu.Unlock()
}

// Blacklist excludes name from automatic activation.
func (m *Manager) Blacklist(name string) (Result, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	added, err := m.blacklist.Add(name)
	if err != nil {
		return Result{}, err
	}
	if !added {
		m.log.Warn("plugin already blacklisted", "plugin", name)
		return Result{Message: fmt.Sprintf("Plugin %s is already blacklisted", name), Already: true}, nil
	}
	m.log.Info("plugin blacklisted", "plugin", name)
	return Result{Message: fmt.Sprintf("Plugin %s is now blacklisted", name)}, nil
}

// Unblacklist lets name be activated automatically again.
func (m *Manager) Unblacklist(name string) (Result, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	removed, err := m.blacklist.Remove(name)
	if err != nil {
		return Result{}, err
	}
	if !removed {
		m.log.Warn("plugin not blacklisted", "plugin", name)
		return Result{Message: fmt.Sprintf("Plugin %s is not blacklisted", name), Already: true}, nil
	}
	m.log.Info("plugin removed from blacklist", "plugin", name)
	return Result{Message: fmt.Sprintf("Plugin %s removed from blacklist", name)}, nil
}

// Blacklisted returns the blacklisted names in insertion order.
func (m *Manager) Blacklisted() ([]string, error) {
	return m.blacklist.List()
}

// IsBlacklisted reports whether name is blacklisted.
func (m *Manager) IsBlacklisted(name string) (bool, error) {
	return m.blacklist.Contains(name)
}

// SetConfig persists cfg for name. It is not validated until the plugin is
// next activated. A nil cfg clears the stored configuration.
func (m *Manager) SetConfig(name string, cfg plugin.Config) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.configs.Set(name, cfg)
}

// GetConfig returns the persisted configuration for name, or nil.
func (m *Manager) GetConfig(name string) (plugin.Config, error) {
	return m.configs.Get(name)
}

// Repositories lists the installed repositories.
func (m *Manager) Repositories() ([]plugin.Repository, error) {
	return m.repos.List()
}

// Scan rebuilds the plugin set from the core, extra and repository
// directories and returns the per-candidate problems found.
func (m *Manager) Scan(ctx context.Context) []plugin.ScanError {
	return m.ScanReport(ctx).Errors
}

// ScanReport is Scan that also reports the candidates found and the
// dependency installs run along the way.
func (m *Manager) ScanReport(ctx context.Context) ScanReport {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	report, _ := m.scanLocked(ctx)
	return report
}

// InstallRepo installs ref, records it and re-scans. Failures are reported
// in the outcome; nothing is recorded when the install fails.
func (m *Manager) InstallRepo(ctx context.Context, ref string, force bool) InstallOutcome {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.opts.Installer == nil {
		return InstallOutcome{Err: errors.New("no repository installer configured")}
	}

	exists := func(name string) bool {
		_, ok, err := m.repos.Get(name)
		return ok || err != nil
	}
	r, err := m.opts.Installer.Install(ctx, ref, repo.Options{Force: force, Exists: exists})
	out := InstallOutcome{Repository: r}
	if err != nil {
		m.log.Error("repository install failed", "ref", ref, "error", err)
		out.Err = err
		return out
	}
	if err := m.repos.Put(r); err != nil {
		m.log.Error("recording repository failed", "repo", r.Name, "error", err)
		if rmErr := os.RemoveAll(filepath.Join(m.opts.PluginDir, r.Name)); rmErr != nil {
			m.log.Warn("could not remove unrecorded repository", "repo", r.Name, "error", rmErr)
		}
		out.Err = err
		return out
	}

	report, candidates := m.scanLocked(ctx)
	out.ScanErrors = report.Errors
	out.Installs = report.Installs
	root := filepath.Join(m.opts.PluginDir, r.Name) + string(filepath.Separator)
	for _, desc := range candidates {
		if strings.HasPrefix(desc.Path+string(filepath.Separator), root) {
			out.Candidates = append(out.Candidates, desc.Name)
		}
	}
	return out
}

// RemoveRepo forgets the named repository, re-scans so its plugins are
// deactivated and dropped, and deletes its directory.
func (m *Manager) RemoveRepo(ctx context.Context, name string) (Result, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	removed, err := m.repos.Remove(name)
	if err != nil {
		return Result{}, err
	}
	if !removed {
		return Result{Message: fmt.Sprintf("I don't know this %s repository", name)},
			&plugin.NotFoundError{Kind: "repository", Name: name}
	}

	report, _ := m.scanLocked(ctx)
	for _, se := range report.Errors {
		m.log.Warn("plugin scan problem", "path", se.Path, "error", se.Message)
	}
	if err := os.RemoveAll(filepath.Join(m.opts.PluginDir, name)); err != nil {
		return Result{}, fmt.Errorf("removing repository directory %s: %w", name, err)
	}
	m.log.Info("repository removed", "repo", name)
	return Result{Message: fmt.Sprintf("Repo %s removed.", name)}, nil
}

// pluginDirs lists the scan roots in priority order.
func (m *Manager) pluginDirs() ([]string, error) {
	dirs := append([]string{}, m.opts.CoreDirs...)
	dirs = append(dirs, m.opts.ExtraDirs...)

	repos, err := m.repos.List()
	if err != nil {
		return dirs, err
	}
	for _, r := range repos {
		dirs = append(dirs, filepath.Join(m.opts.PluginDir, r.Name))
	}
	return dirs, nil
}

// scanLocked runs the locator and merges its result into the instance
// set. An unchanged descriptor keeps its instance, including a live
// activation; a changed or vanished one is deactivated first.
func (m *Manager) scanLocked(ctx context.Context) (ScanReport, []*plugin.Descriptor) {
	dirs, err := m.pluginDirs()
	var errs []plugin.ScanError
	if err != nil {
		errs = append(errs, plugin.ScanError{Path: m.opts.PluginDir, Message: err.Error()})
	}

	res := m.opts.Locator.Scan(ctx, dirs)
	errs = append(errs, res.Errors...)

	found := make(map[string]*plugin.Descriptor, len(res.Candidates))
	for _, desc := range res.Candidates {
		found[desc.Name] = desc
	}

	m.mu.RLock()
	existing := make(map[string]*instance, len(m.instances))
	for name, inst := range m.instances {
		existing[name] = inst
	}
	m.mu.RUnlock()

	for name, inst := range existing {
		desc, still := found[name]
		if still && reflect.DeepEqual(inst.desc, desc) {
			continue
		}
		if inst.state == plugin.StateActivated {
			if _, err := m.deactivateLocked(ctx, inst); err != nil {
				m.log.Error("could not deactivate superseded plugin", "plugin", name, "error", err)
				errs = append(errs, plugin.ScanError{Path: inst.desc.Path, Message: fmt.Sprintf("deactivating %s: %v", name, err)})
				continue
			}
		}
		if !still {
			m.log.Info("plugin no longer present", "plugin", name)
			m.mu.Lock()
			delete(m.instances, name)
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	for name, desc := range found {
		if inst, ok := m.instances[name]; ok && reflect.DeepEqual(inst.desc, desc) {
			continue
		}
		if inst, ok := m.instances[name]; ok && inst.state == plugin.StateActivated {
			continue
		}
		m.instances[name] = &instance{desc: desc, state: plugin.StateDiscovered}
	}
	m.mu.Unlock()

	m.log.Debug("scan complete", "plugins", len(found), "errors", len(errs))
	return ScanReport{Candidates: res.Names(), Errors: errs, Installs: res.Installs}, res.Candidates
}

type nopRouter struct{}

func (nopRouter) Route(string, plugin.Plugin) error { return nil }
func (nopRouter) Unroute(string)                    {}

type nopTemplates struct{}

func (nopTemplates) Add(string)    {}
func (nopTemplates) Remove(string) {}
