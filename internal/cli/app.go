package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/plugkeep/plugkeep/internal/builtin"
	"github.com/plugkeep/plugkeep/internal/config"
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

// app is one fully wired manager together with the host collaborators the
// commands print from.
type app struct {
	settings  config.Settings
	log       hclog.Logger
	mgr       *lifecycle.Manager
	router    *host.Router
	templates *host.Templates
	known     repo.Known
}

// newApp builds a manager from settings. The built-in manifests are
// refreshed in the core directory before anything is scanned.
func newApp(settings config.Settings, log hclog.Logger) (*app, error) {
	if log == nil {
		log = logging.New(settings.LogLevel, nil)
	}

	scope, err := deps.ParseScope(settings.DepsScope)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(settings.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", settings.DataDir, err)
	}
	written, err := builtin.WriteManifests(settings.CoreDir())
	if err != nil {
		return nil, fmt.Errorf("writing built-in manifests: %w", err)
	}
	if len(written) > 0 {
		log.Debug("refreshed built-in manifests", "files", written)
	}

	known, err := repo.LoadKnown(settings.KnownReposFile)
	if err != nil {
		return nil, fmt.Errorf("loading known repositories: %w", err)
	}

	st, err := store.Open(settings.StorePath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	loc := &locator.Locator{
		Checker: &deps.Checker{
			Probe:  &deps.CommandProbe{Command: settings.DepsProbeCommand, Timeout: settings.DepsTimeout},
			Logger: log.Named("deps"),
		},
		Installer:   &deps.CommandInstaller{Command: settings.DepsInstallCommand, Timeout: settings.DepsTimeout},
		AutoInstall: settings.AutoInstallDeps,
		Scope:       scope,
		Logger:      log.Named("locator"),
	}
	loaders := map[string]plugin.Loader{
		plugin.KindGo:  builtin.Default(),
		plugin.KindLua: &luaplugin.Loader{SearchPath: loc.SearchPath, Logger: log.Named("lua")},
	}
	loc.Loaders = loaders

	router := host.NewRouter()
	templates := host.NewTemplates()
	mgr, err := lifecycle.New(lifecycle.Options{
		Store:   st,
		Locator: loc,
		Loaders: loaders,
		Installer: &repo.Installer{
			Dir:     settings.PluginDir(),
			Known:   known,
			Timeout: settings.InstallTimeout,
			Logger:  log.Named("repo"),
		},
		Router:    router,
		Templates: templates,
		Environment: plugin.Environment{
			HostVersion:  settings.HostVersion,
			RuntimeMajor: settings.RuntimeMajor,
		},
		CoreDirs:      []string{settings.CoreDir()},
		ExtraDirs:     settings.ExtraPluginDirs,
		PluginDir:     settings.PluginDir(),
		DataDir:       settings.DataDir,
		CommandPrefix: settings.CommandPrefix,
		Logger:        log,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		settings:  settings,
		log:       log,
		mgr:       mgr,
		router:    router,
		templates: templates,
		known:     known,
	}, nil
}

// openApp builds the app from the loaded settings and runs the initial
// scan. Scan problems are logged, not returned.
func openApp(ctx context.Context) (*app, error) {
	settings := config.Current()
	if logLevel != "" {
		settings.LogLevel = logLevel
	}
	a, err := newApp(settings, nil)
	if err != nil {
		return nil, err
	}
	for _, se := range a.mgr.Scan(ctx) {
		a.log.Warn("plugin scan problem", "path", se.Path, "error", se.Message)
	}
	return a, nil
}

// close stops every active plugin and releases the store.
func (a *app) close(ctx context.Context) error {
	return errors.Join(a.mgr.DeactivateAll(ctx), a.mgr.Close())
}
