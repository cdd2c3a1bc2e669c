package cli

import (
	"fmt"
	"path/filepath"

	"github.com/plugkeep/plugkeep/internal/config"
	"github.com/plugkeep/plugkeep/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	newDir         string
	newDescription string
	newMinVersion  string
	newRuntime     string
)

var pluginNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new Lua plugin",
	Long: `Create a new Lua plugin with a manifest and an entry file.

The plugin is written to <dir>/<module>, where <dir> defaults to the first
extra plugin directory from the settings, so the next scan finds it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data := scaffold.NewData(args[0])
		if newDescription != "" {
			data.Description = newDescription
		}
		if newRuntime != "" {
			data.Runtime = newRuntime
		}
		data.MinVersion = newMinVersion

		dir := newDir
		if dir == "" {
			extra := config.Current().ExtraPluginDirs
			if len(extra) == 0 {
				return fmt.Errorf("no extra plugin directory configured; pass --dir or set %s", config.KeyExtraPluginDirs)
			}
			dir = extra[0]
		}
		outDir := filepath.Join(dir, data.Module)

		result, err := scaffold.Generate("lua", data, outDir)
		if err != nil {
			return fmt.Errorf("creating plugin %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created %s in %s\n", data.Name, result.OutputDir)
		for _, f := range result.Files {
			fmt.Fprintf(out, "  %s\n", f)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		return nil
	},
}

func init() {
	pluginNewCmd.Flags().StringVar(&newDir, "dir", "", "Parent directory of the new plugin")
	pluginNewCmd.Flags().StringVar(&newDescription, "description", "", "Plugin description")
	pluginNewCmd.Flags().StringVar(&newMinVersion, "min-version", "", "Lowest host version the plugin supports")
	pluginNewCmd.Flags().StringVar(&newRuntime, "runtime", "", `Runtime constraint ("2", "2+" or "3")`)
	pluginCmd.AddCommand(pluginNewCmd)
}
