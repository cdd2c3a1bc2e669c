package host

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// Context is the plugin.HostContext handed to a plugin on Attach.
type Context struct {
	name        string
	hostVersion string
	logger      hclog.Logger
	dataDir     string
}

// NewContext builds the host context for plugin name. The plugin's data
// directory is <dataRoot>/plugin_data/<name>; it is created lazily by
// DataDir.
func NewContext(name, hostVersion, dataRoot string, logger hclog.Logger) *Context {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Context{
		name:        name,
		hostVersion: hostVersion,
		logger:      logger.Named(name),
		dataDir:     filepath.Join(dataRoot, "plugin_data", name),
	}
}

func (c *Context) Name() string         { return c.name }
func (c *Context) HostVersion() string  { return c.hostVersion }
func (c *Context) Logger() hclog.Logger { return c.logger }

// DataDir returns the plugin's private directory, creating it on first use.
func (c *Context) DataDir() string {
	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		c.logger.Warn("creating plugin data directory", "path", c.dataDir, "error", err)
	}
	return c.dataDir
}
