package deps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/plugkeep/plugkeep/internal/plugin"
)

// ErrNoIntrospection means the installed packages cannot be inspected at
// all, as opposed to some of them being missing.
var ErrNoIntrospection = errors.New("can't even introspect the installed packages")

// Probe reports whether a package is installed.
type Probe interface {
	Available(ctx context.Context, pkg string) (bool, error)
}

// Installer installs a single package.
type Installer interface {
	Install(ctx context.Context, pkg string, scope Scope) error
}

// Unmet describes the missing requirements of one plugin directory.
type Unmet struct {
	Path     string
	Packages []string
	Message  string
}

// Err returns the unmet requirements as a typed error.
func (u *Unmet) Err() error {
	return &plugin.DependencyMissingError{Path: u.Path, Packages: u.Packages}
}

// Checker verifies a plugin directory's requirements.
type Checker struct {
	Probe  Probe
	Logger hclog.Logger
}

// Check returns nil when dir has no requirements file or everything it
// lists is installed. A nil Probe yields ErrNoIntrospection.
func (c *Checker) Check(ctx context.Context, dir string) (*Unmet, error) {
	pkgs, err := ReadRequirements(dir)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, nil
	}
	if c.Probe == nil {
		return nil, ErrNoIntrospection
	}

	var missing []string
	for _, pkg := range pkgs {
		ok, err := c.Probe.Available(ctx, pkg)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, pkg)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	u := &Unmet{Path: dir, Packages: missing}
	u.Message = u.Err().Error()
	c.logger().Debug("unmet requirements", "path", dir, "packages", strings.Join(missing, ","))
	return u, nil
}

func (c *Checker) logger() hclog.Logger {
	if c.Logger == nil {
		return hclog.NewNullLogger()
	}
	return c.Logger
}

// Outcome is the result of installing one package.
type Outcome struct {
	Package string
	Err     error
}

// InstallAll installs each distinct package once, in first-seen order.
// Failures are logged and recorded in the outcomes; they never stop the
// remaining installs.
func InstallAll(ctx context.Context, inst Installer, scope Scope, pkgs []string, log hclog.Logger) []Outcome {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	seen := make(map[string]bool, len(pkgs))
	var outcomes []Outcome
	for _, pkg := range pkgs {
		if pkg == "" || seen[pkg] {
			continue
		}
		seen[pkg] = true

		log.Info("installing package", "package", pkg, "scope", scope)
		err := inst.Install(ctx, pkg, scope)
		if err != nil {
			err = plugin.WrapContextErr(ctx, "installing "+pkg, err)
			log.Error("package install failed", "package", pkg, "error", err)
		}
		outcomes = append(outcomes, Outcome{Package: pkg, Err: err})
	}
	return outcomes
}

// Failed returns the outcomes that carry an error.
func Failed(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Summary renders outcomes as a one-line report.
func Summary(outcomes []Outcome) string {
	var ok, failed []string
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, fmt.Sprintf("%s (%v)", o.Package, o.Err))
		} else {
			ok = append(ok, o.Package)
		}
	}
	switch {
	case len(failed) == 0:
		return "installed: " + strings.Join(ok, ", ")
	case len(ok) == 0:
		return "failed: " + strings.Join(failed, ", ")
	default:
		return "installed: " + strings.Join(ok, ", ") + "; failed: " + strings.Join(failed, ", ")
	}
}
