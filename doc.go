// Package mirrorboard provides an embeddable health dashboard for a single
// long-running service that exposes a JSON status endpoint.
//
// A [Board] polls the service's status endpoint on a fixed interval,
// derives a health view-model from each snapshot (summary pill, panels,
// module grid and pipeline flow, see package health) and serves it as a
// live web dashboard over Server-Sent Events.
//
// # Quick Start
//
//	target, _ := mirrorboard.NewTarget("mirror", "http://localhost:8000")
//	board, _ := mirrorboard.New(mirrorboard.WithTarget(target))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	board.Start(ctx) // blocks until context is cancelled
//
// # Polling
//
// At most one status request is outstanding at any time. A refresh that
// comes due while another is in flight is dropped, not queued. With
// [WithSuspendWhenIdle] polling stops while no browser has the dashboard
// visible; in-flight requests are cancelled and never update the view.
//
// # Alerts and Notifiers
//
// [WithAlerts] raises cadence and scroll alerts with a cooldown.
// [WithNotifier] ships heartbeats and alerts to external sinks; the CLI
// wires HTTP and Redis stream notifiers from its config file.
//
// # Architecture
//
//   - health: pure snapshot to view-model derivation (public)
//   - internal/poller: status client and poll session
//   - internal/store: latest frame, bounded history, pub/sub
//   - internal/server: HTTP API, SSE and Prometheus metrics
//   - internal/alert, internal/notify: alerting and event sinks
//   - internal/tui: terminal dashboard used by the CLI watch command
//   - dashboard: embedded web UI assets
package mirrorboard
