package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for each failure kind. The typed errors below match them
// through errors.Is so callers can branch on the kind and still read the
// details with errors.As.
var (
	ErrNotFound          = errors.New("not found")
	ErrDependencyMissing = errors.New("dependency missing")
	ErrIncompatible      = errors.New("incompatible plugin")
	ErrConfiguration     = errors.New("plugin configuration error")
	ErrActivation        = errors.New("plugin activation failed")
	ErrRepositoryInstall = errors.New("repository install failed")
	ErrScan              = errors.New("plugin scan error")

	// ErrCanceled is matched in addition to the operation's own kind when a
	// deadline expired or the caller canceled.
	ErrCanceled = errors.New("operation canceled or timed out")
)

// NotFoundError reports an unknown plugin or repository name.
type NotFoundError struct {
	Kind string // "plugin" or "repository"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is implements error matching for errors.Is() checks.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DependencyMissingError lists the unmet requirements of one plugin directory.
type DependencyMissingError struct {
	Path     string
	Packages []string
}

func (e *DependencyMissingError) Error() string {
	return fmt.Sprintf("You need those dependencies for %s: %s", e.Path, strings.Join(e.Packages, ","))
}

// Is implements error matching for errors.Is() checks.
func (e *DependencyMissingError) Is(target error) bool {
	return target == ErrDependencyMissing
}

// Bound names which compatibility constraint rejected a plugin.
type Bound string

const (
	BoundRuntime    Bound = "runtime"
	BoundMinVersion Bound = "min_version"
	BoundMaxVersion Bound = "max_version"
)

// IncompatibleError reports a runtime or host-version mismatch.
type IncompatibleError struct {
	Plugin   string
	Bound    Bound
	Required string
	Current  string
}

func (e *IncompatibleError) Error() string {
	switch e.Bound {
	case BoundMinVersion:
		return fmt.Sprintf("plugin %s asks for a minimal host version of %s while the host is version %s", e.Plugin, e.Required, e.Current)
	case BoundMaxVersion:
		return fmt.Sprintf("plugin %s asks for a maximal host version of %s while the host is version %s", e.Plugin, e.Required, e.Current)
	default:
		return fmt.Sprintf("plugin %s is made for runtime %s and the host runs runtime %s", e.Plugin, e.Required, e.Current)
	}
}

// Is implements error matching for errors.Is() checks.
func (e *IncompatibleError) Is(target error) bool {
	return target == ErrIncompatible
}

// ConfigurationError wraps a schema violation or a failing configure hook.
type ConfigurationError struct {
	Plugin string
	Issues []string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "configuration of %s is invalid", e.Plugin)
	if len(e.Issues) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Issues, "; "))
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is implements error matching for errors.Is() checks.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Activation stages reported by ActivationError.
const (
	StageLoad      = "load"
	StageTemplates = "templates"
	StageActivate  = "activate"
	StageRoute     = "route"
)

// ActivationError wraps a failure from constructing, activating, or
// registering a plugin. It is returned after rollback has completed.
type ActivationError struct {
	Plugin string
	Stage  string
	Err    error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("plugin %s failed at %s stage: %v", e.Plugin, e.Stage, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }

// Is implements error matching for errors.Is() checks.
func (e *ActivationError) Is(target error) bool {
	return target == ErrActivation
}

// RepositoryInstallError reports a failed repository install. Stdout and
// Stderr carry the subprocess output verbatim when there was one.
type RepositoryInstallError struct {
	Source string
	Reason string
	Stdout string
	Stderr string
	Err    error
}

func (e *RepositoryInstallError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "could not install %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stdout != "" || e.Stderr != "" {
		fmt.Fprintf(&b, "\n%s\n---\n%s", e.Stdout, e.Stderr)
	}
	return b.String()
}

func (e *RepositoryInstallError) Unwrap() error { return e.Err }

// Is implements error matching for errors.Is() checks.
func (e *RepositoryInstallError) Is(target error) bool {
	return target == ErrRepositoryInstall
}

// ScanError is a per-candidate failure collected during a scan. It never
// propagates past the scan boundary; it is returned as data.
type ScanError struct {
	Path    string
	Message string
}

func (e ScanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Is implements error matching for errors.Is() checks.
func (e ScanError) Is(target error) bool {
	return target == ErrScan
}

// CanceledError marks err as caused by a deadline or cancellation while
// keeping err's own kind reachable through Unwrap.
type CanceledError struct {
	Op  string
	Err error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("%s canceled: %v", e.Op, e.Err)
}

func (e *CanceledError) Unwrap() error { return e.Err }

// Is implements error matching for errors.Is() checks.
func (e *CanceledError) Is(target error) bool {
	return target == ErrCanceled
}

// WrapContextErr returns a CanceledError when ctx is done, otherwise err.
func WrapContextErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if err == nil {
			err = ctxErr
		}
		return &CanceledError{Op: op, Err: err}
	}
	return err
}
