package cli

import (
	"github.com/plugkeep/plugkeep/internal/branding"
	"github.com/plugkeep/plugkeep/internal/config"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` discovers, installs, and activates bot plugins. Plugins are found in
the built-in directory, any extra directories from the settings, and the
repositories installed with "repo install".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load(hostVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the log level (trace, debug, info, warn, error, off)")
}

// hostVersion is the version plugins are checked against when the
// settings do not override it.
func hostVersion() string {
	if buildVersion == "" || buildVersion == "dev" {
		return "9.9.9"
	}
	return buildVersion
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
