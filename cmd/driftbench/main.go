// Package main provides the driftbench binary: drift session generation and
// continual-learning ranking evaluation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "driftbench",
		Short: "driftbench - domain drift sessions and continual-learning retrieval metrics",
		Long: `driftbench builds synthetic domain-drift curricula for dense retrieval
training and scores the resulting ranking snapshots.

Run 'driftbench generate' to build drift sessions from two domain collections.
Run 'driftbench evaluate' to score one ranking file, optionally against the previous phase.
Run 'driftbench sweep' to score a whole sequence of phase snapshots.
Run 'driftbench events' to inspect, replay or watch run lifecycle events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		generateCmd(),
		evaluateCmd(),
		sweepCmd(),
		historyCmd(),
		manifestCmd(),
		eventsCmd(),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "driftbench %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
