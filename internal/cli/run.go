package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var runNoStartup bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the plugins and read commands interactively",
	Long: `Activate every plugin that is not blacklisted and read commands from
standard input until EOF or "!quit".

Manager commands (!status, !activate, !deactivate, !reload, !blacklist,
!unblacklist, !config, !install) act on the running plugins. Any other
command is routed to the active plugin that provides it. Type !help for the
full list.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runNoStartup, "no-startup", false, "Do not activate plugins at startup")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(context.Background()); err != nil {
			a.log.Error("shutting down", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	if !runNoStartup {
		report, err := a.mgr.ActivateNonStarted(ctx)
		if report != "" {
			fmt.Fprint(out, report)
		}
		if err != nil {
			a.log.Warn("some plugins failed to start", "error", err)
		}
	}

	return repl(ctx, newConsole(a), cmd.InOrStdin(), out)
}

// repl feeds every input line to c until EOF, quit, or cancellation.
func repl(ctx context.Context, c *console, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, ">>> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		reply, err := c.handle(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if reply != "" {
			fmt.Fprintln(out, reply)
		} else if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}
