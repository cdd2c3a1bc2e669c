package plugin

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"not found", &NotFoundError{Kind: "plugin", Name: "x"}, ErrNotFound},
		{"dependency", &DependencyMissingError{Path: "/p", Packages: []string{"a"}}, ErrDependencyMissing},
		{"incompatible", &IncompatibleError{Plugin: "x", Bound: BoundRuntime}, ErrIncompatible},
		{"configuration", &ConfigurationError{Plugin: "x"}, ErrConfiguration},
		{"activation", &ActivationError{Plugin: "x", Stage: StageActivate, Err: errors.New("boom")}, ErrActivation},
		{"install", &RepositoryInstallError{Source: "s", Reason: "r"}, ErrRepositoryInstall},
		{"scan", ScanError{Path: "/p", Message: "m"}, ErrScan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
		})
	}
}

func TestDependencyMissingError_Message(t *testing.T) {
	err := &DependencyMissingError{Path: "/plugins/weather", Packages: []string{"lpeg", "luasocket"}}
	assert.Equal(t, "You need those dependencies for /plugins/weather: lpeg,luasocket", err.Error())
}

func TestWrapContextErr(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	base := errors.New("signal: killed")

	assert.Same(t, base, WrapContextErr(ctx, "clone", base))

	cancel()
	err := WrapContextErr(ctx, "clone", base)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.ErrorIs(t, err, base)

	install := &RepositoryInstallError{Source: "s", Reason: "clone failed", Err: err}
	assert.ErrorIs(t, install, ErrCanceled)
	assert.ErrorIs(t, install, ErrRepositoryInstall)
}
