// SDK example: a dashboard for a Mirror service built in code rather than
// from a config file.
//
// Usage:
//
//	go run ./example/cmd/mockmirror   # in one terminal
//	go run ./example                  # in another
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/mirrorboard"
	"github.com/jpalmerr/mirrorboard/health"
)

func main() {
	baseURL := os.Getenv("MIRROR_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	target, err := mirrorboard.NewTarget("mirror", baseURL,
		mirrorboard.WithTimeout(5*time.Second),
		mirrorboard.WithHeaders("X-Client", "mirrorboard-example"),
	)
	if err != nil {
		slog.Error("failed to create target", "error", err)
		os.Exit(1)
	}

	// tighter than the defaults so the mock's drift trips an alert quickly
	alerts := mirrorboard.DefaultAlertThresholds()
	alerts.Warn.Guiding = 85
	alerts.Cooldown = time.Minute

	board, err := mirrorboard.New(
		mirrorboard.WithTarget(target),
		mirrorboard.WithTitle("Mirror V4 (example)"),
		mirrorboard.WithPollingInterval(6*time.Second),
		mirrorboard.WithPort(8080),
		mirrorboard.WithSuspendWhenIdle(true),
		mirrorboard.WithAlerts(alerts),
		mirrorboard.WithStatusHook(func(s health.Snapshot) {
			slog.Debug("status", "uptime", health.FormatUptime(s.Uptime()), "scrolls", s.Scrolls())
		}),
	)
	if err != nil {
		slog.Error("failed to create mirrorboard", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Mirrorboard Demo                                    ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Polling is paused while no tab is open              ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := board.Start(ctx); err != nil {
		slog.Error("mirrorboard error", "error", err)
		os.Exit(1)
	}
}
