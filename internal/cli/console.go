package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/plugkeep/plugkeep/internal/deps"
	"github.com/plugkeep/plugkeep/internal/host"
	"github.com/plugkeep/plugkeep/internal/lifecycle"
	"github.com/plugkeep/plugkeep/internal/plugin"
)

// errQuit ends the interactive loop.
var errQuit = errors.New("quit")

// console interprets the lines typed into "run". Lines starting with the
// command prefix are either manager commands or commands routed to active
// plugins.
type console struct {
	a      *app
	prefix string
}

func newConsole(a *app) *console {
	prefix := a.settings.CommandPrefix
	if prefix == "" {
		prefix = "!"
	}
	return &console{a: a, prefix: prefix}
}

// handle runs one input line and returns the text to show the operator.
func (c *console) handle(ctx context.Context, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	if !strings.HasPrefix(line, c.prefix) {
		return fmt.Sprintf("Commands start with %s, try %shelp", c.prefix, c.prefix), nil
	}

	name, args, _ := strings.Cut(strings.TrimPrefix(line, c.prefix), " ")
	args = strings.TrimSpace(args)
	mgr := c.a.mgr

	switch strings.ToLower(name) {
	case "quit", "exit":
		return "", errQuit
	case "help":
		return c.help(), nil
	case "status":
		return c.status()
	case "activate":
		return c.withName(args, func(n string) (lifecycle.Result, error) { return mgr.Activate(ctx, n) })
	case "deactivate":
		return c.withName(args, func(n string) (lifecycle.Result, error) { return mgr.Deactivate(ctx, n) })
	case "reload":
		return c.withName(args, func(n string) (lifecycle.Result, error) { return mgr.Reload(ctx, n) })
	case "blacklist":
		return c.withName(args, mgr.Blacklist)
	case "unblacklist":
		return c.withName(args, mgr.Unblacklist)
	case "config":
		return c.config(ctx, args)
	case "install":
		return c.install(ctx, args)
	case "uninstall":
		return c.withName(args, func(n string) (lifecycle.Result, error) { return mgr.RemoveRepo(ctx, n) })
	}

	out, err := c.a.router.Dispatch(ctx, name, args)
	if errors.Is(err, host.ErrUnknownCommand) {
		return fmt.Sprintf("Command %q not found, try %shelp", name, c.prefix), nil
	}
	return out, err
}

func (c *console) withName(args string, fn func(string) (lifecycle.Result, error)) (string, error) {
	if args == "" {
		return "", errors.New("a plugin name is required")
	}
	res, err := fn(args)
	if res.Message != "" {
		return res.Message, err
	}
	return "", err
}

func (c *console) help() string {
	var b strings.Builder
	fmt.Fprintln(&b, "Manager commands:")
	for _, line := range []string{
		"status                 list plugins and their state",
		"activate <name>        activate a plugin",
		"deactivate <name>      deactivate a plugin",
		"reload <name>          re-read a plugin from disk",
		"blacklist <name>       keep a plugin from starting automatically",
		"unblacklist <name>     allow a plugin to start automatically",
		"config <name> [json]   show or replace a plugin configuration",
		"install <repo>         install a plugin repository",
		"uninstall <repo>       remove a plugin repository and its plugins",
		"quit                   leave",
	} {
		fmt.Fprintf(&b, "  %s%s\n", c.prefix, line)
	}
	cmds := c.a.router.Commands()
	if len(cmds) > 0 {
		fmt.Fprintln(&b, "Plugin commands:")
		for _, ci := range cmds {
			fmt.Fprintf(&b, "  %s%-21s (%s) %s\n", c.prefix, ci.Name, ci.Owner, ci.Help)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// status lists every plugin with one-letter flags: A active, D deactivated,
// F failed, B blacklisted.
func (c *console) status() (string, error) {
	blacklisted, err := c.a.mgr.Blacklisted()
	if err != nil {
		return "", err
	}
	bl := make(map[string]bool, len(blacklisted))
	for _, n := range blacklisted {
		bl[n] = true
	}

	var b strings.Builder
	fmt.Fprintln(&b, "Plugins:")
	for _, info := range c.a.mgr.List() {
		fmt.Fprintf(&b, "  [%s] %s\n", statusFlags(info, bl[info.Name]), info.Name)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func statusFlags(info lifecycle.Info, blacklisted bool) string {
	var flags string
	switch info.State {
	case plugin.StateActivated:
		flags = "A"
	case plugin.StateFailed:
		flags = "F"
	default:
		flags = "D"
	}
	if blacklisted {
		flags += ",B"
	}
	return flags
}

// config shows or replaces a plugin configuration. A new configuration is
// applied right away when the plugin is active.
func (c *console) config(ctx context.Context, args string) (string, error) {
	name, raw, _ := strings.Cut(args, " ")
	raw = strings.TrimSpace(raw)
	if name == "" {
		return "", errors.New("a plugin name is required")
	}
	info, ok := c.a.mgr.Get(name)
	if !ok {
		return fmt.Sprintf("I don't know this %s plugin", name), &plugin.NotFoundError{Kind: "plugin", Name: name}
	}

	if raw == "" {
		cfg, err := c.a.mgr.GetConfig(name)
		if err != nil {
			return "", err
		}
		if cfg == nil {
			return fmt.Sprintf("%s has no configuration", name), nil
		}
		return queryConfig(cfg, "")
	}

	cfg, err := parseConfig(raw)
	if err != nil {
		return "", err
	}
	if err := c.a.mgr.SetConfig(name, cfg); err != nil {
		return "", err
	}
	if info.State != plugin.StateActivated {
		return "Plugin configuration done.", nil
	}
	if res, err := c.a.mgr.Deactivate(ctx, name); err != nil {
		return res.Message, err
	}
	res, err := c.a.mgr.ActivateWithConfig(ctx, name, cfg)
	if err != nil {
		return res.Message, err
	}
	return "Plugin configuration done. " + res.Message, nil
}

func (c *console) install(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("a repository is required")
	}
	out := c.a.mgr.InstallRepo(ctx, ref, false)
	if out.Err != nil {
		return "", out.Err
	}
	return installReport(out), nil
}

// installReport describes a successful install and the scan after it.
func installReport(out lifecycle.InstallOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new plugin repository named %s has been installed correctly from %s.", out.Repository.Name, out.Repository.Source)
	if len(out.Candidates) > 0 {
		fmt.Fprintf(&b, "\nPlugins found: %s", strings.Join(out.Candidates, ", "))
	} else {
		fmt.Fprint(&b, "\nNo plugins were found in it.")
	}
	if len(out.Installs) > 0 {
		fmt.Fprintf(&b, "\nDependencies %s", deps.Summary(out.Installs))
	}
	if len(out.ScanErrors) > 0 {
		fmt.Fprint(&b, "\nSome plugins are generating errors:")
		for _, se := range out.ScanErrors {
			fmt.Fprintf(&b, "\n  %s", se.Error())
		}
	}
	return b.String()
}
