package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/mirrorboard/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a mirrorboard configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. No connection to the target or the notifiers is made. It's
useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  mirrorboard validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var sinks []string
	if cfg.Notify.HTTP.URL != "" {
		sinks = append(sinks, "http")
	}
	if cfg.Notify.Redis.URL != "" {
		sinks = append(sinks, "redis")
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Title:         %s\n", cfg.Title)
	fmt.Printf("  Port:          %d\n", cfg.Port)
	fmt.Printf("  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Printf("  Suspend idle:  %t\n", cfg.SuspendWhenIdle)
	fmt.Printf("  Status URL:    %s%s\n", strings.TrimRight(cfg.Target.BaseURL, "/"), cfg.Target.StatusPath)
	fmt.Printf("  Alerts:        %t\n", cfg.Alerts.Enabled)
	fmt.Printf("  Notifiers:     %d %v\n", len(sinks), sinks)

	return nil
}
