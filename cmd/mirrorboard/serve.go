package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/mirrorboard"
	"github.com/jpalmerr/mirrorboard/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the mirrorboard dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the mirrorboard dashboard server.

The server will:
  - Load configuration from the specified YAML file
  - Poll the target's status endpoint, pausing while no browser is watching
  - Serve the dashboard UI, JSON API and /metrics on the configured port
  - Send heartbeats and alerts to the configured notifiers

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  mirrorboard serve -c config.yaml
  mirrorboard serve --config /etc/mirrorboard/config.yaml --log-format json`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	logger.Info("config loaded",
		"target", cfg.Target.Name,
		"base_url", cfg.Target.BaseURL,
		"alerts", cfg.Alerts.Enabled,
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := config.BuildOptions(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}

	board, err := mirrorboard.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create board: %w", err)
	}

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- board.Start(ctx)
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
