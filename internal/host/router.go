package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/plugkeep/plugkeep/internal/plugin"
)

// ErrUnknownCommand is returned by Dispatch for unrouted command names.
var ErrUnknownCommand = errors.New("unknown command")

type route struct {
	owner string
	cmd   plugin.Command
}

// Router maps command names to the handlers of activated plugins.
type Router struct {
	mu       sync.RWMutex
	commands map[string]route
	owners   map[string][]string
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		commands: make(map[string]route),
		owners:   make(map[string][]string),
	}
}

// Route registers every command p exposes under owner name. A command
// already owned by another plugin fails the whole registration and nothing
// is routed. Plugins without commands route trivially.
func (r *Router) Route(name string, p plugin.Plugin) error {
	cmdr, ok := p.(plugin.Commander)
	if !ok {
		r.mu.Lock()
		r.owners[name] = nil
		r.mu.Unlock()
		return nil
	}
	cmds := cmdr.Commands()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range cmds {
		key := strings.ToLower(c.Name)
		if existing, ok := r.commands[key]; ok && existing.owner != name {
			return fmt.Errorf("command %q of %s is already provided by %s", c.Name, name, existing.owner)
		}
	}

	r.unrouteLocked(name)
	keys := make([]string, 0, len(cmds))
	for _, c := range cmds {
		key := strings.ToLower(c.Name)
		r.commands[key] = route{owner: name, cmd: c}
		keys = append(keys, key)
	}
	r.owners[name] = keys
	return nil
}

// Unroute removes every command owned by name. Unknown names are ignored.
func (r *Router) Unroute(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unrouteLocked(name)
}

func (r *Router) unrouteLocked(name string) {
	for _, key := range r.owners[name] {
		if rt, ok := r.commands[key]; ok && rt.owner == name {
			delete(r.commands, key)
		}
	}
	delete(r.owners, name)
}

// Routed reports whether name currently has a registration.
func (r *Router) Routed(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.owners[name]
	return ok
}

// CommandInfo describes one routed command.
type CommandInfo struct {
	Name  string
	Owner string
	Help  string
}

// Commands lists the routed commands sorted by name.
func (r *Router) Commands() []CommandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CommandInfo, 0, len(r.commands))
	for key, rt := range r.commands {
		out = append(out, CommandInfo{Name: key, Owner: rt.owner, Help: rt.cmd.Help})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch runs the handler routed under command.
func (r *Router) Dispatch(ctx context.Context, command, args string) (string, error) {
	r.mu.RLock()
	rt, ok := r.commands[strings.ToLower(command)]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	return rt.cmd.Handler(ctx, args)
}
