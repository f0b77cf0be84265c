// Command couriersim runs the courier fleet simulation.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type app struct {
	root    *cobra.Command
	stdout  io.Writer
	verbose bool
}

func newApp(stdout io.Writer) *app {
	a := &app{stdout: stdout}

	a.root = &cobra.Command{
		Use:   "couriersim",
		Short: "Grid city courier simulation",
		Long: `couriersim runs computer-controlled couriers through a grid city under
changing weather. Couriers pick up and deliver orders, spend stamina on every
step, and are scored on payout and punctuality.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), a.verbose)
		},
	}
	a.root.SetOut(stdout)
	a.root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log per-tick decisions")

	a.root.AddCommand(
		a.newRunCmd(),
		a.newPathCmd(),
		a.newWeatherCmd(),
	)
	return a
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// execute runs the CLI with args until done or interrupted.
func (a *app) execute(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a.root.SetArgs(args)
	return a.root.ExecuteContext(ctx)
}

func main() {
	if err := newApp(os.Stdout).execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
