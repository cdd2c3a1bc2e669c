//go:build integration

package integration_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/plugkeep/plugkeep/internal/builtin"
	"github.com/plugkeep/plugkeep/internal/deps"
	"github.com/plugkeep/plugkeep/internal/host"
	"github.com/plugkeep/plugkeep/internal/lifecycle"
	"github.com/plugkeep/plugkeep/internal/locator"
	"github.com/plugkeep/plugkeep/internal/logging"
	"github.com/plugkeep/plugkeep/internal/luaplugin"
	"github.com/plugkeep/plugkeep/internal/plugin"
	"github.com/plugkeep/plugkeep/internal/repo"
	"github.com/plugkeep/plugkeep/internal/store"
)

// testEnv holds the isolated directories one simulated bot process uses.
type testEnv struct {
	DataDir   string
	CoreDir   string
	ExtraDir  string
	PluginDir string
	ToolsDir  string // fake package manager scripts
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		DataDir:   filepath.Join(root, "data"),
		CoreDir:   filepath.Join(root, "data", "core"),
		ExtraDir:  filepath.Join(root, "extra"),
		PluginDir: filepath.Join(root, "data", "plugins"),
		ToolsDir:  filepath.Join(root, "tools"),
	}
	for _, dir := range []string{env.DataDir, env.ExtraDir, env.ToolsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("creating %s: %v", dir, err)
		}
	}
	return env
}

// process is one manager wired the way the CLI wires it.
type process struct {
	mgr    *lifecycle.Manager
	router *host.Router
}

type processOptions struct {
	hostVersion string
	probe       []string
	install     []string
	autoInstall bool
}

// startProcess builds a manager over env and runs the initial scan.
func startProcess(t *testing.T, env *testEnv, opts processOptions) (*process, []plugin.ScanError) {
	t.Helper()
	if opts.hostVersion == "" {
		opts.hostVersion = "1.0.0"
	}
	log := logging.Discard()

	if _, err := builtin.WriteManifests(env.CoreDir); err != nil {
		t.Fatalf("writing built-in manifests: %v", err)
	}
	st, err := store.Open(filepath.Join(env.DataDir, "core.yaml"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	loc := &locator.Locator{
		Checker:     &deps.Checker{Probe: &deps.CommandProbe{Command: opts.probe}},
		Installer:   &deps.CommandInstaller{Command: opts.install},
		AutoInstall: opts.autoInstall,
		Scope:       deps.ScopeSystem,
		Logger:      log,
	}
	loaders := map[string]plugin.Loader{
		plugin.KindGo:  builtin.Default(),
		plugin.KindLua: &luaplugin.Loader{SearchPath: loc.SearchPath, Logger: log},
	}
	loc.Loaders = loaders

	router := host.NewRouter()
	mgr, err := lifecycle.New(lifecycle.Options{
		Store:       st,
		Locator:     loc,
		Loaders:     loaders,
		Installer:   &repo.Installer{Dir: env.PluginDir, Logger: log},
		Router:      router,
		Templates:   host.NewTemplates(),
		Environment: plugin.Environment{HostVersion: opts.hostVersion, RuntimeMajor: 3},
		CoreDirs:    []string{env.CoreDir},
		ExtraDirs:   []string{env.ExtraDir},
		PluginDir:   env.PluginDir,
		DataDir:     env.DataDir,
		Logger:      log,
	})
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}

	p := &process{mgr: mgr, router: router}
	t.Cleanup(p.stop)
	return p, mgr.Scan(context.Background())
}

func (p *process) stop() {
	_ = p.mgr.DeactivateAll(context.Background())
	_ = p.mgr.Close()
}

// writeScript writes an executable shell script and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(dir, name)
	writeFile(t, path, "#!/bin/sh\n"+body+"\n")
	if err := os.Chmod(path, 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

// makeGitRepo commits files into a fresh repository named name.
func makeGitRepo(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := filepath.Join(t.TempDir(), name)
	for rel, content := range files {
		writeFile(t, filepath.Join(dir, rel), content)
	}
	for _, args := range [][]string{
		{"init", "-q"},
		{"add", "."},
		{"-c", "user.name=test", "-c", "user.email=test@example.org", "commit", "-q", "-m", "initial"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
		}
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s", path)
	}
}

func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file to not exist: %s", path)
	}
}
