package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/mirrorboard"
	"github.com/jpalmerr/mirrorboard/config"
	"github.com/jpalmerr/mirrorboard/internal/poller"
)

// targetFlags registers the flags shared by commands that talk to a
// target directly.
func targetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to config file")
	cmd.Flags().String("url", "", "target base URL (instead of a config file)")
	cmd.MarkFlagsMutuallyExclusive("config", "url")
	cmd.MarkFlagsOneRequired("config", "url")
}

// resolved is a target plus the settings that came with it.
type resolved struct {
	target   mirrorboard.Target
	title    string
	interval time.Duration
	log      config.LogConfig
}

func resolveTarget(cmd *cobra.Command) (resolved, error) {
	if rawURL, _ := cmd.Flags().GetString("url"); rawURL != "" {
		target, err := mirrorboard.NewTarget(config.DefaultTarget, rawURL)
		if err != nil {
			return resolved{}, err
		}
		def := config.Default()
		return resolved{target: target, title: def.Title, interval: def.PollInterval.Duration(), log: def.Log}, nil
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return resolved{}, errors.New("either --config or --url is required")
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return resolved{}, fmt.Errorf("failed to load config: %w", err)
	}
	target, err := config.BuildTarget(cfg)
	if err != nil {
		return resolved{}, err
	}
	return resolved{target: target, title: cfg.Title, interval: cfg.PollInterval.Duration(), log: cfg.Log}, nil
}

// newClient builds a status client for the target.
func newClient(t mirrorboard.Target) *poller.Client {
	return poller.NewClient(poller.ClientConfig{
		BaseURL:        t.BaseURL(),
		StatusPath:     t.StatusPath(),
		SafeguardsPath: t.SafeguardsPath(),
		Headers:        t.Headers(),
		Timeout:        t.Timeout(),
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
