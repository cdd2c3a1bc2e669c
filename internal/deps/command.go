package deps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/plugkeep/plugkeep/internal/plugin"
)

// Scope selects where packages are installed.
type Scope string

const (
	ScopeSystem Scope = "system"
	ScopeUser   Scope = "user"
)

// ParseScope validates an operator-supplied scope string.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeSystem:
		return ScopeSystem, nil
	case ScopeUser, "":
		return ScopeUser, nil
	default:
		return "", fmt.Errorf("unknown dependency scope %q (want system or user)", s)
	}
}

// Default package manager invocations.
var (
	DefaultProbeCommand   = []string{"luarocks", "show"}
	DefaultInstallCommand = []string{"luarocks", "install"}
)

// commandResult captures one finished subprocess.
type commandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// run executes argv and captures its output. A non-zero exit is reported
// in the result, not as an error.
func run(ctx context.Context, argv []string) (*commandResult, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin, argv[1:]...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	res := &commandResult{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

// withTimeout derives a context bounded by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// CommandProbe asks an external package manager whether a package is
// installed, appending the package name to Command.
type CommandProbe struct {
	Command []string
	Timeout time.Duration
}

// Available implements Probe. A missing package manager is reported as
// ErrNoIntrospection.
func (p *CommandProbe) Available(ctx context.Context, pkg string) (bool, error) {
	argv := p.Command
	if len(argv) == 0 {
		argv = DefaultProbeCommand
	}

	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	res, err := run(ctx, append(append([]string{}, argv...), pkg))
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return false, fmt.Errorf("%w: %s not found", ErrNoIntrospection, argv[0])
		}
		return false, plugin.WrapContextErr(ctx, "probing "+pkg, err)
	}
	return res.ExitCode == 0, nil
}

// CommandInstaller installs packages through an external package manager.
// User scope adds --local, the luarocks flag for per-user trees.
type CommandInstaller struct {
	Command []string
	Timeout time.Duration
}

// Install implements Installer.
func (i *CommandInstaller) Install(ctx context.Context, pkg string, scope Scope) error {
	argv := append([]string{}, i.Command...)
	if len(argv) == 0 {
		argv = append(argv, DefaultInstallCommand...)
	}
	if scope == ScopeUser {
		argv = append(argv, "--local")
	}
	argv = append(argv, pkg)

	ctx, cancel := withTimeout(ctx, i.Timeout)
	defer cancel()

	res, err := run(ctx, argv)
	if err != nil {
		return plugin.WrapContextErr(ctx, "installing "+pkg, fmt.Errorf("running %s: %w", argv[0], err))
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s exited with code %d: %s", strings.Join(argv, " "), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}
