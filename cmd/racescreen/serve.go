package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/racescreen"
	"github.com/jpalmerr/racescreen/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the RaceScreen dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the RaceScreen dashboard server.

The server will:
  - Load configuration from the specified YAML file
  - Load the pool list and select the first pool
  - Refresh the selected pool's leaderboard on the poll interval
  - Serve the dashboard UI on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  racescreen serve -c config.yaml
  racescreen serve --config /etc/racescreen/config.yaml --env-file /etc/racescreen/.env`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(slog.LevelInfo)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded", "base_url", cfg.BaseURL)
	logger.Info("starting server",
		"port", cfg.Port,
		"poll_interval", cfg.PollInterval.Duration().String(),
	)

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}
	opts = append(opts, racescreen.WithLogger(logger))

	rs, err := racescreen.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create RaceScreen: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runUntilShutdown(ctx, rs, logger)
}

// runUntilShutdown runs rs.Start and waits for it, bounding the wait after
// the context is cancelled by shutdownTimeout.
func runUntilShutdown(ctx context.Context, rs *racescreen.RaceScreen, logger *slog.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- rs.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
