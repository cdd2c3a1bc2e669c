package builtin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/plugkeep/plugkeep/internal/plugin"
)

// Echo repeats its arguments back, optionally with a configured prefix.
type Echo struct {
	mu     sync.Mutex
	host   plugin.HostContext
	prefix string
	active bool
}

// Attach implements plugin.Plugin.
func (e *Echo) Attach(host plugin.HostContext) {
	e.host = host
}

// Configure implements plugin.Plugin. A nil config resets the prefix.
func (e *Echo) Configure(cfg plugin.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prefix = ""
	if cfg == nil {
		return nil
	}
	if v, ok := cfg["prefix"]; ok {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("prefix must be a string, got %T", v)
		}
		e.prefix = s
	}
	return nil
}

// Activate implements plugin.Plugin.
func (e *Echo) Activate(context.Context) error {
	e.mu.Lock()
	e.active = true
	e.mu.Unlock()
	if e.host != nil {
		e.host.Logger().Debug("echo ready", "prefix", e.prefix)
	}
	return nil
}

// Deactivate implements plugin.Plugin.
func (e *Echo) Deactivate(context.Context) error {
	e.mu.Lock()
	e.active = false
	e.mu.Unlock()
	return nil
}

// Commands implements plugin.Commander.
func (e *Echo) Commands() []plugin.Command {
	return []plugin.Command{{
		Name:    "echo",
		Help:    "Repeats the given text.",
		Handler: e.echo,
	}}
}

func (e *Echo) echo(_ context.Context, args string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return "", fmt.Errorf("echo is not active")
	}
	return e.prefix + strings.TrimSpace(args), nil
}
