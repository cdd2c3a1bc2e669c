package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/plugkeep/plugkeep/internal/branding"
	"github.com/plugkeep/plugkeep/internal/plugin"
)

// Which locates an executable; exec.LookPath in production.
type Which func(name string) (string, error)

// Options tune one install.
type Options struct {
	// Force replaces an existing repository of the same name.
	Force bool
	// Exists reports whether a repository name is already registered.
	Exists func(name string) bool
}

// Installer places plugin repositories under Dir.
type Installer struct {
	Dir        string
	Known      Known
	Which      Which
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     hclog.Logger
}

// Install resolves ref, then clones or extracts it into Dir/<name>. No
// file is touched when the install is rejected up front. On success the
// returned repository is ready to be registered.
func (i *Installer) Install(ctx context.Context, ref string, opts Options) (plugin.Repository, error) {
	log := i.logger()
	source := i.Known.Resolve(ref)
	name := HumanName(source)
	kind := plugin.RepoGit
	if IsArchive(source) {
		kind = plugin.RepoArchive
	}
	repo := plugin.Repository{Name: name, Source: source, Kind: kind}

	if name == "" || name == "." || name == ".." {
		return repo, &plugin.RepositoryInstallError{Source: source, Reason: "cannot derive a repository name"}
	}

	target := filepath.Join(i.Dir, name)
	if !opts.Force {
		if opts.Exists != nil && opts.Exists(name) {
			return repo, &plugin.RepositoryInstallError{Source: source, Reason: fmt.Sprintf("repository %s is already installed (use --force to replace it)", name)}
		}
		if _, err := os.Stat(target); err == nil {
			return repo, &plugin.RepositoryInstallError{Source: source, Reason: fmt.Sprintf("directory %s already exists (use --force to replace it)", target)}
		}
	}

	var gitPath string
	if kind == plugin.RepoGit {
		var err error
		gitPath, err = i.which()("git")
		if err != nil {
			return repo, &plugin.RepositoryInstallError{
				Source: source,
				Reason: "git command not found: You need to have git installed on your system to be able to install git based plugins",
				Err:    err,
			}
		}
	}

	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	if err := os.MkdirAll(i.Dir, 0o755); err != nil {
		return repo, &plugin.RepositoryInstallError{Source: source, Reason: "creating plugin directory", Err: err}
	}
	staging, err := os.MkdirTemp(i.Dir, "."+name+"-*")
	if err != nil {
		return repo, &plugin.RepositoryInstallError{Source: source, Reason: "creating staging directory", Err: err}
	}
	defer os.RemoveAll(staging)
	work := filepath.Join(staging, name)

	log.Info("installing repository", "name", name, "source", source, "kind", kind)
	if kind == plugin.RepoGit {
		err = i.clone(ctx, gitPath, source, work)
	} else {
		err = i.extract(ctx, source, work)
	}
	if err != nil {
		log.Error("repository install failed", "name", name, "error", err)
		return repo, plugin.WrapContextErr(ctx, "installing "+name, err)
	}

	if opts.Force {
		if err := os.RemoveAll(target); err != nil {
			return repo, &plugin.RepositoryInstallError{Source: source, Reason: "removing previous installation", Err: err}
		}
	}
	if err := os.Rename(work, target); err != nil {
		return repo, &plugin.RepositoryInstallError{Source: source, Reason: "moving repository into place", Err: err}
	}
	return repo, nil
}

// clone runs git clone into target, reporting its output verbatim on
// failure.
func (i *Installer) clone(ctx context.Context, gitPath, source, target string) error {
	cmd := exec.CommandContext(ctx, gitPath, "clone", "--depth=1", source, target)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := "git clone failed"
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			reason = fmt.Sprintf("git clone exited with code %d", exitErr.ExitCode())
		}
		return &plugin.RepositoryInstallError{
			Source: source,
			Reason: reason,
			Stdout: stdout.String(),
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

func (i *Installer) extract(ctx context.Context, source, target string) error {
	rc, err := i.openArchive(ctx, source)
	if err != nil {
		return &plugin.RepositoryInstallError{Source: source, Reason: "fetching archive", Err: err}
	}
	defer rc.Close()

	if err := extractTarGz(rc, target); err != nil {
		return &plugin.RepositoryInstallError{Source: source, Reason: "extracting archive", Err: err}
	}
	return nil
}

func (i *Installer) which() Which {
	if i.Which == nil {
		return exec.LookPath
	}
	return i.Which
}

func (i *Installer) httpClient() *http.Client {
	if i.HTTPClient == nil {
		return http.DefaultClient
	}
	return i.HTTPClient
}

func (i *Installer) userAgent() string {
	return branding.CLIName() + "-installer"
}

func (i *Installer) logger() hclog.Logger {
	if i.Logger == nil {
		return hclog.NewNullLogger()
	}
	return i.Logger
}
