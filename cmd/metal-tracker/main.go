package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "metal-tracker",
		Short:         "Track metal prices, backfill history and notify subscribers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.PersistentFlags().String("db-path", "", "SQLite database file (DB_PATH)")
	root.PersistentFlags().String("source-code", "", "code of the tracked source (SOURCE_CODE)")

	root.AddCommand(
		newServeCmd(),
		newFetchCmd(),
		newBackfillCmd(),
		newSeedCmd(),
		newDeactivateCmd(),
		newAlertCmd(),
	)
	return root
}
