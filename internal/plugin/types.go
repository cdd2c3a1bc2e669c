package plugin

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// Loader kinds a manifest may declare.
const (
	KindLua = "lua"
	KindGo  = "go"
)

// Runtime constraints a manifest may declare.
const (
	Runtime2     = "2"
	Runtime2Plus = "2+"
	Runtime3     = "3"
)

// DefaultRuntime is assumed when a manifest has no runtime section.
const DefaultRuntime = Runtime2

// Config is an operator-supplied plugin configuration. A nil Config means
// "no configuration" and is passed through the gates unchanged.
type Config map[string]any

// Descriptor is the declared metadata of a plugin found by a scan. A later
// scan replaces it wholesale.
type Descriptor struct {
	Name            string
	Path            string // plugin directory
	ManifestPath    string
	Module          string
	Kind            string
	Description     string
	Version         string
	Runtime         string
	RuntimeDeclared bool
	MinVersion      string
	MaxVersion      string
	ConfigSchema    map[string]any
	TemplatesPath   string
	Requirements    []string
}

// Environment describes the running host for compatibility checks.
type Environment struct {
	HostVersion  string
	RuntimeMajor int
}

// HostContext is handed to a plugin by Attach before it is configured.
type HostContext interface {
	Name() string
	HostVersion() string
	Logger() hclog.Logger
	DataDir() string
}

// Plugin is the contract every extension implements.
type Plugin interface {
	Attach(host HostContext)
	Configure(cfg Config) error
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}

// CommandFunc handles one routed command. args is the raw text after the
// command name.
type CommandFunc func(ctx context.Context, args string) (string, error)

// Command is a handler a plugin exposes to the message router.
type Command struct {
	Name    string
	Help    string
	Handler CommandFunc
}

// Commander is implemented by plugins that expose commands.
type Commander interface {
	Commands() []Command
}

// Loader turns a descriptor into a live plugin. Check is the cheap scan-time
// validation; Load constructs a fresh instance every time it is called.
type Loader interface {
	Check(desc *Descriptor) error
	Load(desc *Descriptor) (Plugin, error)
}

// Router registers plugin command handlers with the message dispatcher.
// Unroute must be idempotent.
type Router interface {
	Route(name string, p Plugin) error
	Unroute(name string)
}

// TemplateRegistry tracks template directories owned by plugins. Add and
// Remove are called in matching pairs; Remove of an unknown path is a no-op.
type TemplateRegistry interface {
	Add(path string)
	Remove(path string)
}

// Repository is an installed plugin source.
type Repository struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Kind   string `yaml:"kind"`
}

// Repository kinds.
const (
	RepoGit     = "git"
	RepoArchive = "archive"
)
