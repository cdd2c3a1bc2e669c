package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/plugkeep/plugkeep/internal/lifecycle"
	"github.com/plugkeep/plugkeep/internal/plugin"
	"github.com/spf13/cobra"
)

var (
	listActive      bool
	listBlacklisted bool
	listJSON        bool
)

var pluginCmd = &cobra.Command{
	Use:     "plugin",
	Aliases: []string{"plugins"},
	Short:   "Inspect and control plugins",
	Long: `Inspect and control the plugins found by the last scan.

Activation state lives in the running process. The one-shot commands below
start from the same state the bot starts from: "deactivate" and "reload"
first activate every plugin that is not blacklisted. Use "run" to keep
plugins active between commands.`,
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered plugins",
	RunE:  runPluginList,
}

var pluginActivateCmd = &cobra.Command{
	Use:   "activate <name>",
	Short: "Run every activation check for a plugin and activate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			return printResult(cmd.OutOrStdout(), func() (lifecycle.Result, error) { return a.mgr.Activate(ctx, args[0]) })
		})
	},
}

var pluginDeactivateCmd = &cobra.Command{
	Use:   "deactivate <name>",
	Short: "Deactivate a plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			return printResult(cmd.OutOrStdout(), func() (lifecycle.Result, error) { return a.mgr.Deactivate(ctx, args[0]) })
		})
	},
}

var pluginReloadCmd = &cobra.Command{
	Use:   "reload <name>",
	Short: "Re-read a plugin from disk and activate it again if it was active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			return printResult(cmd.OutOrStdout(), func() (lifecycle.Result, error) { return a.mgr.Reload(ctx, args[0]) })
		})
	},
}

var pluginBlacklistCmd = &cobra.Command{
	Use:   "blacklist <name>",
	Short: "Keep a plugin from being activated at startup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(_ context.Context, a *app) error {
			return printResult(cmd.OutOrStdout(), func() (lifecycle.Result, error) { return a.mgr.Blacklist(args[0]) })
		})
	},
}

var pluginUnblacklistCmd = &cobra.Command{
	Use:   "unblacklist <name>",
	Short: "Let a blacklisted plugin be activated at startup again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(_ context.Context, a *app) error {
			return printResult(cmd.OutOrStdout(), func() (lifecycle.Result, error) { return a.mgr.Unblacklist(args[0]) })
		})
	},
}

func init() {
	pluginListCmd.Flags().BoolVar(&listActive, "active", false, "Only list plugins that are active after startup activation")
	pluginListCmd.Flags().BoolVar(&listBlacklisted, "blacklisted", false, "Only list blacklisted plugins")
	pluginListCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")

	pluginCmd.AddCommand(pluginListCmd, pluginActivateCmd, pluginDeactivateCmd, pluginReloadCmd,
		pluginBlacklistCmd, pluginUnblacklistCmd)
	rootCmd.AddCommand(pluginCmd)
}

// withApp opens the app, optionally runs startup activation, calls fn and
// shuts everything down again.
func withApp(cmd *cobra.Command, startup bool, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	if startup {
		if _, err := a.mgr.ActivateNonStarted(ctx); err != nil {
			a.log.Warn("some plugins failed to start", "error", err)
		}
	}

	runErr := fn(ctx, a)
	if err := a.close(ctx); err != nil {
		a.log.Warn("shutting down", "error", err)
	}
	return runErr
}

func printResult(w io.Writer, fn func() (lifecycle.Result, error)) error {
	res, err := fn()
	if res.Message != "" {
		fmt.Fprintln(w, res.Message)
	}
	return err
}

// pluginEntry is one row of "plugin list".
type pluginEntry struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	Kind        string `json:"kind"`
	Version     string `json:"version"`
	Blacklisted bool   `json:"blacklisted"`
	Path        string `json:"path"`
	Error       string `json:"error,omitempty"`
}

func runPluginList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, listActive, func(_ context.Context, a *app) error {
		entries, err := pluginEntries(a, listActive, listBlacklisted)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No plugins found.")
			return nil
		}
		if listJSON {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		return printPluginTable(cmd.OutOrStdout(), entries)
	})
}

func pluginEntries(a *app, activeOnly, blacklistedOnly bool) ([]pluginEntry, error) {
	var entries []pluginEntry
	for _, info := range a.mgr.List() {
		bl, err := a.mgr.IsBlacklisted(info.Name)
		if err != nil {
			return nil, err
		}
		if activeOnly && info.State != plugin.StateActivated {
			continue
		}
		if blacklistedOnly && !bl {
			continue
		}
		e := pluginEntry{
			Name:        info.Name,
			State:       info.State.String(),
			Kind:        info.Descriptor.Kind,
			Version:     info.Descriptor.Version,
			Blacklisted: bl,
			Path:        info.Descriptor.Path,
		}
		if info.LastError != nil {
			e.Error = info.LastError.Error()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func printPluginTable(w io.Writer, entries []pluginEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tKIND\tVERSION\tBLACKLISTED")
	for _, e := range entries {
		version := e.Version
		if version == "" {
			version = "-"
		}
		bl := ""
		if e.Blacklisted {
			bl = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.State, e.Kind, version, bl)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
