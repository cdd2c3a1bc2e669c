package luaplugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/plugkeep/plugkeep/internal/plugin"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Loader implements plugin.Loader for Lua plugins.
type Loader struct {
	// SearchPath returns the plugin roots prepended to package.path.
	SearchPath func() []string
	Logger     hclog.Logger
}

// EntryFile returns the Lua file a descriptor points at.
func EntryFile(desc *plugin.Descriptor) string {
	module := desc.Module
	if !strings.HasSuffix(module, ".lua") {
		module += ".lua"
	}
	return filepath.Join(desc.Path, filepath.FromSlash(module))
}

// Check implements plugin.Loader by compiling the entry file without
// running it.
func (l *Loader) Check(desc *plugin.Descriptor) error {
	entry := EntryFile(desc)
	f, err := os.Open(entry)
	if err != nil {
		return fmt.Errorf("opening plugin module: %w", err)
	}
	defer f.Close()

	chunk, err := parse.Parse(f, entry)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", entry, err)
	}
	if _, err := lua.Compile(chunk, entry); err != nil {
		return fmt.Errorf("compiling %s: %w", entry, err)
	}
	return nil
}

// Load implements plugin.Loader. Every call runs the entry file in a new
// interpreter.
func (l *Loader) Load(desc *plugin.Descriptor) (plugin.Plugin, error) {
	L := lua.NewState()
	l.extendPackagePath(L, desc.Path)

	p := &Plugin{L: L, name: desc.Name, logger: l.logger().Named(desc.Name)}
	if err := p.protect(func() error { return L.DoFile(EntryFile(desc)) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("loading %s: %w", desc.Name, err)
	}
	return p, nil
}

func (l *Loader) extendPackagePath(L *lua.LState, pluginDir string) {
	roots := []string{pluginDir}
	if l.SearchPath != nil {
		roots = append(roots, l.SearchPath()...)
	}

	var parts []string
	for _, root := range roots {
		parts = append(parts,
			filepath.Join(root, "?.lua"),
			filepath.Join(root, "?", "init.lua"),
		)
	}

	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	current := lua.LVAsString(pkg.RawGetString("path"))
	if current != "" {
		parts = append(parts, current)
	}
	pkg.RawSetString("path", lua.LString(strings.Join(parts, ";")))
}

func (l *Loader) logger() hclog.Logger {
	if l.Logger == nil {
		return hclog.NewNullLogger()
	}
	return l.Logger
}
