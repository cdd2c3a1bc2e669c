package lifecycle

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/plugkeep/plugkeep/internal/deps"
	"github.com/plugkeep/plugkeep/internal/locator"
	"github.com/plugkeep/plugkeep/internal/plugin"
	"github.com/plugkeep/plugkeep/internal/repo"
	"github.com/plugkeep/plugkeep/internal/store"
)

// RepoInstaller places a repository on disk.
type RepoInstaller interface {
	Install(ctx context.Context, ref string, opts repo.Options) (plugin.Repository, error)
}

// Options are the collaborators a Manager is built from.
type Options struct {
	Store     store.Store
	Locator   *locator.Locator
	Loaders   map[string]plugin.Loader
	Installer RepoInstaller
	Router    plugin.Router
	Templates plugin.TemplateRegistry

	Environment plugin.Environment

	// CoreDirs and ExtraDirs are scanned before installed repositories.
	CoreDirs  []string
	ExtraDirs []string
	// PluginDir holds one directory per installed repository.
	PluginDir string
	// DataDir is the root of per-plugin data directories.
	DataDir string
	// CommandPrefix is used in operator-facing notices.
	CommandPrefix string

	Logger hclog.Logger
}

// Result is the outcome of an operator command. Already is set when the
// command was a no-op because the target was already in the requested
// state.
type Result struct {
	Message string
	Already bool
	Plugin  plugin.Plugin
}

// Info is a read-only snapshot of one plugin instance.
type Info struct {
	Name       string
	Descriptor *plugin.Descriptor
	State      plugin.State
	Config     plugin.Config
	LastError  error
}

// InstallOutcome reports a repository install and the re-scan that
// followed it. Install failures are carried in Err.
type InstallOutcome struct {
	Repository plugin.Repository
	Candidates []string
	ScanErrors []plugin.ScanError
	// Installs holds the dependency installs the re-scan ran.
	Installs []deps.Outcome
	Err      error
}

// ScanReport is the result of a full scan.
type ScanReport struct {
	Candidates []string
	Errors     []plugin.ScanError
	Installs   []deps.Outcome
}

// instance is the manager's record of one plugin. Fields are written only
// with the lifecycle lock held and published under the state lock.
type instance struct {
	desc    *plugin.Descriptor
	state   plugin.State
	config  plugin.Config
	lastErr error
	live    plugin.Plugin
}

func (i *instance) info() Info {
	return Info{
		Name:       i.desc.Name,
		Descriptor: i.desc,
		State:      i.state,
		Config:     i.config,
		LastError:  i.lastErr,
	}
}
