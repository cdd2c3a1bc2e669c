// Package logging builds the hclog loggers shared by the manager, the
// locator, the installers, and the plugins' host contexts.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/plugkeep/plugkeep/internal/branding"
)

// New returns a root logger at the given level name ("trace", "debug",
// "info", "warn", "error", "off"). An empty or unknown level means info.
// A nil writer logs to stderr.
func New(level string, out io.Writer) hclog.Logger {
	if out == nil {
		out = os.Stderr
	}

	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   branding.CLIName(),
		Level:  lvl,
		Output: out,
	})
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}
