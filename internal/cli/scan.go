package cli

import (
	"context"
	"fmt"

	"github.com/plugkeep/plugkeep/internal/config"
	"github.com/plugkeep/plugkeep/internal/deps"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Search the plugin directories and report what was found",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		settings := config.Current()
		if logLevel != "" {
			settings.LogLevel = logLevel
		}
		a, err := newApp(settings, nil)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		out := cmd.OutOrStdout()
		report := a.mgr.ScanReport(ctx)
		for _, info := range a.mgr.List() {
			fmt.Fprintf(out, "found %s (%s) in %s\n", info.Name, info.Descriptor.Kind, info.Descriptor.Path)
		}
		for _, se := range report.Errors {
			fmt.Fprintf(out, "error: %s\n", se.Error())
		}
		if len(report.Installs) > 0 {
			fmt.Fprintf(out, "dependencies %s\n", deps.Summary(report.Installs))
		}
		fmt.Fprintf(out, "%d plugins, %d problems\n", len(report.Candidates), len(report.Errors))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
