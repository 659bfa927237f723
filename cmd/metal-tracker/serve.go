package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/metal-tracker/internal/schedule"
	"github.com/ahmethakanbesel/metal-tracker/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduler and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(a)
		},
	}
	cmd.Flags().String("port", "", "HTTP port (PORT)")
	cmd.Flags().Duration("fetch-interval", 0, "live fetch interval (FETCH_INTERVAL)")
	return cmd
}

func serve(a *app) error {
	// Root context: cancelled on SIGINT/SIGTERM so in-flight upstream calls
	// stop promptly during graceful shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	runner := schedule.NewRunner()
	runner.Every("fetch-latest", a.cfg.FetchInterval, true, func(ctx context.Context) error {
		if _, err := a.metrics.FetchLatest(ctx); err != nil {
			return err
		}
		_, err := a.alerts.Evaluate(ctx)
		return err
	})

	botDone := make(chan struct{})
	if a.bot != nil {
		runner.Daily("daily-report", a.cfg.DailyAlertHour, a.cfg.Location, func(ctx context.Context) error {
			_, err := a.bot.Broadcast(ctx)
			return err
		})
		go func() {
			a.bot.Run(rootCtx)
			close(botDone)
		}()
	} else {
		slog.Warn("TELEGRAM_BOT_TOKEN not set, telegram alerts disabled")
		close(botDone)
	}

	runnerDone := make(chan struct{})
	go func() {
		runner.Run(rootCtx)
		close(runnerDone)
	}()

	// HTTP server: rootCtx is used as BaseContext so every request context
	// inherits from it and is cancelled on shutdown.
	srv := server.New(rootCtx, a.cfg.Port, server.Services{
		Metrics: a.metrics,
		Reports: a.reports,
		Alerts:  a.alerts,
		Store:   a.repo,

		MetalSymbol: a.cfg.MetalSymbol,
	})

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	slog.Info("server started", "port", a.cfg.Port, "source", a.cfg.SourceCode,
		"fetch_interval", a.cfg.FetchInterval, "telegram", a.bot != nil)

	var runErr error
	select {
	case <-done:
	case err := <-srvErr:
		runErr = fmt.Errorf("server: %w", err)
	}

	// Cancel root context first so in-flight requests, scheduled tasks and
	// the bot's long poll begin winding down immediately.
	rootCancel()

	// Wait for background work to drain before shutting down HTTP.
	<-runnerDone
	<-botDone

	// Then drain connections with a deadline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return runErr
}
