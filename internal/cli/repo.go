package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/plugkeep/plugkeep/internal/lifecycle"
	"github.com/spf13/cobra"
)

var repoForce bool

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage plugin repositories",
}

var repoInstallCmd = &cobra.Command{
	Use:   "install <repo>",
	Short: "Install a plugin repository",
	Long: `Install a plugin repository into the plugin directory.

<repo> is a known repository alias (see "repo known"), a git URL, or a
.tar.gz/.tgz archive given as a URL or a local path. Git repositories are
cloned with a shallow "git clone". The plugins found in the repository are
listed once it is installed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			out := a.mgr.InstallRepo(ctx, args[0], repoForce)
			if out.Err != nil {
				return out.Err
			}
			fmt.Fprintln(cmd.OutOrStdout(), installReport(out))
			return nil
		})
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"uninstall"},
	Short:   "Deactivate the plugins of a repository and delete it",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			return printResult(cmd.OutOrStdout(), func() (lifecycle.Result, error) { return a.mgr.RemoveRepo(ctx, args[0]) })
		})
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(_ context.Context, a *app) error {
			repos, err := a.mgr.Repositories()
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No repositories installed yet.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tSOURCE")
			for _, r := range repos {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Kind, r.Source)
			}
			return w.Flush()
		})
	},
}

var repoKnownCmd = &cobra.Command{
	Use:   "known",
	Short: "List the known public repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(_ context.Context, a *app) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ALIAS\tDESCRIPTION\tURL")
			for _, k := range a.known.Sorted() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", k.Name, k.Description, k.URL)
			}
			return w.Flush()
		})
	},
}

func init() {
	repoInstallCmd.Flags().BoolVar(&repoForce, "force", false, "Replace a repository that is already installed")
	repoCmd.AddCommand(repoInstallCmd, repoRemoveCmd, repoListCmd, repoKnownCmd)
	rootCmd.AddCommand(repoCmd)
}
