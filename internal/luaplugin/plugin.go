package luaplugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/plugkeep/plugkeep/internal/plugin"
	lua "github.com/yuin/gopher-lua"
)

// Hook names a plugin may define as globals.
const (
	hookConfigure  = "configure"
	hookActivate   = "activate"
	hookDeactivate = "deactivate"
	commandsGlobal = "commands"
	hostGlobal     = "host"
)

// ErrClosed is returned when a plugin's interpreter has been shut down.
var ErrClosed = errors.New("lua plugin is closed")

// Plugin is a loaded Lua plugin. Access to the interpreter is serialized.
type Plugin struct {
	mu     sync.Mutex
	L      *lua.LState
	name   string
	logger hclog.Logger
	closed bool
}

// Attach implements plugin.Plugin.
func (p *Plugin) Attach(host plugin.HostContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	p.logger = host.Logger()
	L := p.L
	t := L.NewTable()
	t.RawSetString("name", lua.LString(host.Name()))
	t.RawSetString("version", lua.LString(host.HostVersion()))
	t.RawSetString("data_dir", lua.LString(host.DataDir()))
	t.RawSetString("log", L.NewFunction(p.luaLog))
	L.SetGlobal(hostGlobal, t)
}

// luaLog backs host.log(level, message [, fields]).
func (p *Plugin) luaLog(L *lua.LState) int {
	level := hclog.LevelFromString(L.CheckString(1))
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	msg := L.OptString(2, "")

	var args []any
	if fields := L.OptTable(3, nil); fields != nil {
		if m, ok := toGo(fields).(map[string]any); ok {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				args = append(args, k, m[k])
			}
		}
	}
	p.logger.Log(level, msg, args...)
	return 0
}

// Configure implements plugin.Plugin. A nil config is passed as nil.
func (p *Plugin) Configure(cfg plugin.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var arg lua.LValue = lua.LNil
	if cfg != nil {
		arg = mapToTable(p.L, map[string]any(cfg))
	}
	_, err := p.callHook(context.Background(), hookConfigure, arg)
	return err
}

// Activate implements plugin.Plugin.
func (p *Plugin) Activate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.callHook(ctx, hookActivate)
	return err
}

// Deactivate implements plugin.Plugin. The interpreter is closed once the
// hook succeeds; on failure it stays usable.
func (p *Plugin) Deactivate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	if _, err := p.callHook(ctx, hookDeactivate); err != nil {
		return err
	}
	p.L.Close()
	p.closed = true
	return nil
}

// Commands implements plugin.Commander from the global commands table.
func (p *Plugin) Commands() []plugin.Command {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	tbl, ok := p.L.GetGlobal(commandsGlobal).(*lua.LTable)
	if !ok {
		return nil
	}

	var names []string
	tbl.ForEach(func(k, v lua.LValue) {
		if k.Type() == lua.LTString && v.Type() == lua.LTFunction {
			names = append(names, string(k.(lua.LString)))
		}
	})
	sort.Strings(names)

	cmds := make([]plugin.Command, 0, len(names))
	for _, name := range names {
		cmds = append(cmds, plugin.Command{
			Name:    name,
			Help:    fmt.Sprintf("%s command from %s", name, p.name),
			Handler: p.commandHandler(name),
		})
	}
	return cmds
}

func (p *Plugin) commandHandler(name string) plugin.CommandFunc {
	return func(ctx context.Context, args string) (string, error) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.closed {
			return "", ErrClosed
		}
		tbl, ok := p.L.GetGlobal(commandsGlobal).(*lua.LTable)
		if !ok {
			return "", fmt.Errorf("%s no longer defines commands", p.name)
		}
		fn, ok := tbl.RawGetString(name).(*lua.LFunction)
		if !ok {
			return "", fmt.Errorf("%s no longer defines command %q", p.name, name)
		}

		results, err := p.call(ctx, fn, lua.LString(args))
		if err != nil {
			return "", err
		}
		if len(results) == 0 || results[0] == lua.LNil {
			return "", nil
		}
		if len(results) > 1 && results[1] != lua.LNil {
			return "", errors.New(lua.LVAsString(results[1]))
		}
		return lua.LVAsString(results[0]), nil
	}
}

// callHook calls a global function if it is defined. A hook that returns
// false or nil, msg is treated as a failure carrying msg. Must be called
// with mu held.
func (p *Plugin) callHook(ctx context.Context, name string, args ...lua.LValue) ([]lua.LValue, error) {
	if p.closed {
		return nil, ErrClosed
	}
	fn, ok := p.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, nil
	}

	results, err := p.call(ctx, fn, args...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", p.name, name, err)
	}
	if len(results) >= 1 && results[0] == lua.LFalse || len(results) >= 2 && results[0] == lua.LNil && results[1] != lua.LNil {
		msg := "returned false"
		if len(results) >= 2 && results[1] != lua.LNil {
			msg = lua.LVAsString(results[1])
		}
		return nil, fmt.Errorf("%s.%s: %s", p.name, name, msg)
	}
	return results, nil
}

// call runs fn with ctx installed for cancellation and collects every
// returned value. Must be called with mu held.
func (p *Plugin) call(ctx context.Context, fn *lua.LFunction, args ...lua.LValue) ([]lua.LValue, error) {
	L := p.L
	if ctx != nil {
		L.SetContext(ctx)
		defer L.RemoveContext()
	}

	top := L.GetTop()
	err := p.protect(func() error {
		return L.CallByParam(lua.P{Fn: fn, NRet: lua.MultRet, Protect: true}, args...)
	})
	if err != nil {
		L.SetTop(top)
		if ctx != nil && ctx.Err() != nil {
			return nil, plugin.WrapContextErr(ctx, p.name, err)
		}
		return nil, err
	}

	n := L.GetTop() - top
	results := make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		results[i] = L.Get(top + i + 1)
	}
	L.SetTop(top)
	return results, nil
}

// protect converts a Go panic raised inside the interpreter into an error.
func (p *Plugin) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Close shuts the interpreter down without running any hook. It is used
// for instances discarded before activation.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.L.Close()
		p.closed = true
	}
	return nil
}
