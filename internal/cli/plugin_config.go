package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/plugkeep/plugkeep/internal/plugin"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	configValue string
)

var pluginConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write persisted plugin configurations",
	Long: `Read and write the configuration a plugin is activated with.

Configurations are JSON objects. Paths use gjson/sjson syntax, for example
"servers.0.host". A configuration is only checked against the plugin's
config_schema when the plugin is next activated.`,
}

var pluginConfigGetCmd = &cobra.Command{
	Use:   "get <name> [path]",
	Short: "Print a plugin configuration or one value of it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(_ context.Context, a *app) error {
			if _, ok := a.mgr.Get(args[0]); !ok {
				return &plugin.NotFoundError{Kind: "plugin", Name: args[0]}
			}
			cfg, err := a.mgr.GetConfig(args[0])
			if err != nil {
				return err
			}
			var path string
			if len(args) == 2 {
				path = args[1]
			}
			out, err := queryConfig(cfg, path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var pluginConfigSetCmd = &cobra.Command{
	Use:   "set <name> [json]",
	Short: "Replace a plugin configuration or set one value with --path/--value",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		return withApp(cmd, false, func(_ context.Context, a *app) error {
			if _, ok := a.mgr.Get(name); !ok {
				return &plugin.NotFoundError{Kind: "plugin", Name: name}
			}

			var cfg plugin.Config
			var err error
			switch {
			case len(args) == 2 && configPath != "":
				return errors.New("give either a whole configuration or --path, not both")
			case len(args) == 2:
				cfg, err = parseConfig(args[1])
			case configPath != "":
				var current plugin.Config
				if current, err = a.mgr.GetConfig(name); err == nil {
					cfg, err = editConfig(current, configPath, configValue)
				}
			default:
				return errors.New("a configuration or --path is required")
			}
			if err != nil {
				return err
			}

			if err := a.mgr.SetConfig(name, cfg); err != nil {
				return fmt.Errorf("saving configuration of %s: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration of %s saved.\n", name)
			return nil
		})
	},
}

func init() {
	pluginConfigSetCmd.Flags().StringVar(&configPath, "path", "", "Path of the value to set")
	pluginConfigSetCmd.Flags().StringVar(&configValue, "value", "", "Value to set; parsed as JSON when possible")
	pluginConfigCmd.AddCommand(pluginConfigGetCmd, pluginConfigSetCmd)
	pluginCmd.AddCommand(pluginConfigCmd)
}
