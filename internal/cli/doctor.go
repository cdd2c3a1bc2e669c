package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/plugkeep/plugkeep/internal/builtin"
	"github.com/plugkeep/plugkeep/internal/config"
	"github.com/plugkeep/plugkeep/internal/deps"
	"github.com/plugkeep/plugkeep/internal/manifest"
	"github.com/plugkeep/plugkeep/internal/platform"
	"github.com/spf13/cobra"
)

var checkManifest string

func init() {
	doctorCmd.Flags().StringVar(&checkManifest, "check-manifest", "", "Validate a plugin.yaml at the given path")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the tools and directories plugins depend on",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if checkManifest != "" {
			return runManifestCheck(out, checkManifest)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s := config.Current()

		fmt.Fprintln(out, "Tools:")
		checkTool(out, "git", "needed to install git repositories")
		if len(s.DepsProbeCommand) > 0 {
			checkTool(out, s.DepsProbeCommand[0], "needed to check plugin requirements")
			probe := &deps.CommandProbe{Command: s.DepsProbeCommand, Timeout: s.DepsTimeout}
			if _, err := probe.Available(ctx, "plugkeep-doctor-probe"); err != nil {
				fmt.Fprintf(out, "  ! requirement probe: %v\n", err)
			}
		}

		fmt.Fprintln(out, "Directories:")
		checkDir(out, "data", s.DataDir)
		checkDir(out, "core plugins", s.CoreDir())
		checkDir(out, "repositories", s.PluginDir())
		for _, d := range s.ExtraPluginDirs {
			checkDir(out, "extra plugins", d)
		}

		if info, err := os.Stat(s.StorePath()); err == nil && !platform.Private(info.Mode()) {
			fmt.Fprintf(out, "  ! store %s is readable by other users; plugin configurations may hold secrets\n", s.StorePath())
		}

		fmt.Fprintln(out, "Host:")
		fmt.Fprintf(out, "  version %s, runtime %d\n", s.HostVersion, s.RuntimeMajor)
		fmt.Fprintf(out, "  built-in modules: %s\n", strings.Join(builtin.Default().Modules(), ", "))
		return nil
	},
}

func checkTool(out io.Writer, name, why string) {
	if path, err := exec.LookPath(name); err == nil {
		fmt.Fprintf(out, "  ok %s (%s)\n", name, path)
		return
	}
	fmt.Fprintf(out, "  ! %s not found, %s\n", name, why)
}

func checkDir(out io.Writer, label, dir string) {
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		fmt.Fprintf(out, "  - %s: %s (not created yet)\n", label, dir)
	case !info.IsDir():
		fmt.Fprintf(out, "  ! %s: %s is not a directory\n", label, dir)
	default:
		fmt.Fprintf(out, "  ok %s: %s\n", label, dir)
	}
}

func runManifestCheck(out io.Writer, path string) error {
	res, err := manifest.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	if res.Valid {
		fmt.Fprintf(out, "%s is valid\n", path)
		return nil
	}
	for _, msg := range res.Messages() {
		fmt.Fprintf(out, "  %s\n", msg)
	}
	return fmt.Errorf("%s is not a valid manifest", path)
}
