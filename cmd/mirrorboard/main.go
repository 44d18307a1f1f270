// Package main is the entry point for the mirrorboard CLI.
//
// mirrorboard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	mirrorboard serve -c config.yaml      # Start the web dashboard
//	mirrorboard watch -c config.yaml      # Terminal dashboard
//	mirrorboard status --url URL          # One-shot status check
//	mirrorboard validate -c config.yaml   # Validate configuration
//	mirrorboard version                   # Show version info
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/mirrorboard/config"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	envFile   string
	logFormat string
	isDebug   bool
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "mirrorboard",
	Short: "A health dashboard for a Mirror service",
	Long: `mirrorboard polls a Mirror service's /status endpoint and shows its
health as a live web dashboard, a terminal dashboard or a one-shot report.

Quick start:
  1. Create a config file (mirrorboard.yaml)
  2. Run: mirrorboard serve -c mirrorboard.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  title: Mirror V4
  poll_interval: 6s
  target:
    base_url: ${MIRROR_URL:-http://localhost:8000}`,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvFile,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this mirrorboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mirrorboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config is expanded")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides log.format)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
}

// loadEnvFile loads the dotenv file. A missing default file is fine; a
// missing file named explicitly is an error.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	err := godotenv.Load(envFile)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
		return nil
	}
	return fmt.Errorf("failed to load env file: %w", err)
}

// newLogger builds the CLI logger: tint for text, slog JSON otherwise.
// The --log-format and --debug flags take precedence over cfg.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if isDebug {
		level = slog.LevelDebug
	}

	format := cfg.Format
	if logFormat != "" {
		format = logFormat
	}

	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}
