package locator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/plugkeep/plugkeep/internal/deps"
	"github.com/plugkeep/plugkeep/internal/manifest"
	"github.com/plugkeep/plugkeep/internal/plugin"
)

// manifestPattern matches plugin manifests at any depth below a root.
const manifestPattern = "**/" + manifest.FileName

// Result is the outcome of one scan.
type Result struct {
	Candidates []*plugin.Descriptor
	Errors     []plugin.ScanError
	Installs   []deps.Outcome
}

// Names returns the candidate names in scan order.
func (r *Result) Names() []string {
	out := make([]string, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		out = append(out, c.Name)
	}
	return out
}

// Locator scans plugin roots. It remembers every root it has seen so
// loaders can resolve modules relative to them.
type Locator struct {
	// Loaders maps a descriptor kind to the loader that pre-checks it.
	Loaders map[string]plugin.Loader
	// Checker verifies requirements; nil skips the dependency step.
	Checker *deps.Checker
	// Installer is used when AutoInstall is set.
	Installer   deps.Installer
	AutoInstall bool
	Scope       deps.Scope
	Logger      hclog.Logger

	mu         sync.RWMutex
	searchPath []string
}

// SearchPath returns the roots seen so far, in first-seen order.
func (l *Locator) SearchPath() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.searchPath)
}

// AddSearchPath records dir once; repeated calls are no-ops.
func (l *Locator) AddSearchPath(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !slices.Contains(l.searchPath, dir) {
		l.searchPath = append(l.searchPath, dir)
	}
}

// Scan walks dirs in order and returns every plugin found. When two roots
// provide the same plugin name the first one wins and the later candidate
// is reported as a scan error.
func (l *Locator) Scan(ctx context.Context, dirs []string) *Result {
	log := l.logger()
	res := &Result{}
	seen := make(map[string]string)

	for _, root := range dirs {
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			res.Errors = append(res.Errors, plugin.ScanError{Path: root, Message: err.Error()})
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			log.Debug("skipping missing plugin root", "path", abs)
			continue
		}
		l.AddSearchPath(abs)

		manifests, err := findManifests(abs)
		if err != nil {
			res.Errors = append(res.Errors, plugin.ScanError{Path: abs, Message: fmt.Sprintf("searching for plugins: %v", err)})
			continue
		}

		for _, path := range manifests {
			desc, err := l.inspect(path)
			if err != nil {
				log.Warn("plugin candidate rejected", "path", path, "error", err)
				res.Errors = append(res.Errors, plugin.ScanError{Path: filepath.Dir(path), Message: err.Error()})
				continue
			}
			if first, dup := seen[desc.Name]; dup {
				res.Errors = append(res.Errors, plugin.ScanError{
					Path:    desc.Path,
					Message: fmt.Sprintf("plugin %s is already provided by %s", desc.Name, first),
				})
				continue
			}
			seen[desc.Name] = desc.Path
			res.Candidates = append(res.Candidates, desc)
		}
	}

	l.resolveDependencies(ctx, res)
	return res
}

// inspect parses one manifest and pre-checks it with its loader. A panic
// inside a loader is reported like any other error.
func (l *Locator) inspect(path string) (desc *plugin.Descriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			desc, err = nil, fmt.Errorf("plugin check panicked: %v", r)
		}
	}()

	desc, err = manifest.Load(path)
	if err != nil {
		return nil, err
	}

	loader, ok := l.Loaders[desc.Kind]
	if !ok {
		return nil, fmt.Errorf("no loader for plugin kind %q", desc.Kind)
	}
	if err := loader.Check(desc); err != nil {
		return nil, err
	}

	reqs, err := deps.ReadRequirements(desc.Path)
	if err != nil {
		return nil, err
	}
	desc.Requirements = reqs
	return desc, nil
}

// resolveDependencies checks every candidate's requirements. Unmet
// requirements are either installed or reported; the candidate is kept
// either way.
func (l *Locator) resolveDependencies(ctx context.Context, res *Result) {
	if l.Checker == nil {
		return
	}

	unmet := make(map[string]*deps.Unmet)
	var introspectionReported bool
	check := func(desc *plugin.Descriptor) {
		if len(desc.Requirements) == 0 {
			return
		}
		u, err := l.Checker.Check(ctx, desc.Path)
		switch {
		case errors.Is(err, deps.ErrNoIntrospection):
			if !introspectionReported {
				introspectionReported = true
				res.Errors = append(res.Errors, plugin.ScanError{Path: desc.Path, Message: err.Error()})
			}
		case err != nil:
			res.Errors = append(res.Errors, plugin.ScanError{Path: desc.Path, Message: fmt.Sprintf("checking dependencies: %v", err)})
		case u != nil:
			unmet[desc.Name] = u
		default:
			delete(unmet, desc.Name)
		}
	}

	for _, desc := range res.Candidates {
		check(desc)
	}
	if len(unmet) == 0 {
		return
	}

	// With auto-install on, a failed install only shows up later as an
	// activation failure.
	if l.AutoInstall && l.Installer != nil {
		var pkgs []string
		for _, desc := range res.Candidates {
			if u, ok := unmet[desc.Name]; ok {
				pkgs = append(pkgs, u.Packages...)
			}
		}
		res.Installs = deps.InstallAll(ctx, l.Installer, l.Scope, pkgs, l.logger())
		for _, o := range deps.Failed(res.Installs) {
			l.logger().Warn("dependency install failed, plugins needing it will likely not start",
				"package", o.Package, "error", o.Err)
		}
		return
	}

	names := make([]string, 0, len(unmet))
	for name := range unmet {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		u := unmet[name]
		res.Errors = append(res.Errors, plugin.ScanError{
			Path:    u.Path,
			Message: fmt.Sprintf("%s: %s", name, u.Message),
		})
	}
}

// findManifests returns manifest paths under root, skipping hidden
// directories such as .git.
func findManifests(root string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), manifestPattern)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, m := range matches {
		if hidden(m) {
			continue
		}
		out = append(out, filepath.Join(root, filepath.FromSlash(m)))
	}
	sort.Strings(out)
	return out, nil
}

func hidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func (l *Locator) logger() hclog.Logger {
	if l.Logger == nil {
		return hclog.NewNullLogger()
	}
	return l.Logger
}
