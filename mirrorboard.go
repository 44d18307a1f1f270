package mirrorboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/mirrorboard/dashboard"
	"github.com/jpalmerr/mirrorboard/internal/alert"
	"github.com/jpalmerr/mirrorboard/internal/metrics"
	"github.com/jpalmerr/mirrorboard/internal/notify"
	"github.com/jpalmerr/mirrorboard/internal/poller"
	"github.com/jpalmerr/mirrorboard/internal/server"
	"github.com/jpalmerr/mirrorboard/internal/store"
)

const (
	defaultPort  = 8080
	defaultTitle = "Mirrorboard"
)

// Board is the main entry point for the health dashboard.
//
// A Board polls one [Target], derives a health view-model from every
// status snapshot and serves it as a live web dashboard. Create one with
// [New] and run it with [Board.Start].
//
// Board is immutable after creation and safe for concurrent use.
type Board struct {
	title           string
	target          Target
	pollingInterval time.Duration
	port            int
	logger          *slog.Logger
	statusHook      StatusHook
	suspendWhenIdle bool
	alerts          *AlertThresholds
	notifiers       []Notifier
}

// New creates a [Board] with the given options.
//
// A target is required via [WithTarget]. Defaults:
//
//   - Polling interval: 6 seconds
//   - Port: 8080
//   - Title: "Mirrorboard"
//   - Logger: [slog.Default]
//   - Suspend when idle: off
//   - Alerts: off
//
// Example:
//
//	target, _ := mirrorboard.NewTarget("mirror", "http://localhost:8000")
//	board, err := mirrorboard.New(
//	    mirrorboard.WithTarget(target),
//	    mirrorboard.WithPort(9090),
//	)
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		title:           defaultTitle,
		pollingInterval: poller.DefaultInterval,
		port:            defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.target == nil {
		return nil, errors.New("a target is required")
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Board{
		title:           cfg.title,
		target:          *cfg.target,
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		logger:          cfg.logger,
		statusHook:      cfg.statusHook,
		suspendWhenIdle: cfg.suspendWhenIdle,
		alerts:          cfg.alerts,
		notifiers:       append([]Notifier(nil), cfg.notifiers...),
	}, nil
}

// Start begins polling and serves the dashboard.
//
// Start is a blocking call that runs until the provided context is
// cancelled. During execution:
//
//   - The target is polled immediately, then at the configured interval
//   - The HTTP server starts on the configured port
//   - With [WithSuspendWhenIdle], polling stops while no browser is watching
//   - Alerts and heartbeats go to the configured notifiers
//
// For signal handling, use [signal.NotifyContext]:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//	board.Start(ctx)
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server
// fails to start. Notifiers are closed before Start returns.
func (b *Board) Start(ctx context.Context) error {
	b.logger.Info("mirrorboard starting", "target", b.target.Name(), "url", b.target.StatusURL())
	b.logger.Info("polling configured", "interval", b.pollingInterval.String(), "suspend_when_idle", b.suspendWhenIdle)
	b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))

	defer b.closeNotifiers()

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	client := poller.NewClient(b.target.clientConfig())
	defer client.Close()

	frames := store.NewMemoryStore(store.DefaultHistorySize)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	var dispatcher *notify.Dispatcher
	if len(b.notifiers) > 0 {
		dispatcher = notify.NewDispatcher(notify.Multi(b.notifiers), notify.DefaultQueueSize, b.logger)
		g.Go(func() error { return dispatcher.Run(gctx) })
	}

	var monitor *alert.Monitor
	if b.alerts != nil {
		monitor = alert.NewMonitor(*b.alerts)
	}

	session := poller.NewSession(poller.SessionConfig{
		Client:   client,
		Sink:     frames,
		Interval: b.pollingInterval,
		Logger:   b.logger,
		Observer: b.observer(frames, monitor, dispatcher),
	})
	if b.statusHook != nil {
		session.SetStatusHook(poller.StatusHook(b.statusHook))
	}

	httpServer := server.NewServer(server.Config{
		Store:     frames,
		Control:   session,
		Port:      b.port,
		Assets:    dashboard.Assets,
		Title:     b.title,
		Logger:    b.logger,
		OnViewers: b.viewerHandler(session),
	})

	// cleanup stops the session before the dispatcher so no event is
	// enqueued after the queue stops draining
	cleanup := func() {
		session.Teardown()
		cancel()
		_ = g.Wait()
	}

	if err := httpServer.Start(gctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	session.Start()

	<-ctx.Done()
	cleanup()
	b.logger.Info("mirrorboard stopped")
	return nil
}

// viewerHandler maps the live-viewer count onto the session: the first
// viewer resumes polling, the last one leaving suspends it.
func (b *Board) viewerHandler(session *poller.Session) func(int) {
	return func(n int) {
		metrics.Viewers.Set(float64(n))
		if !b.suspendWhenIdle {
			return
		}
		if n > 0 {
			session.Resume()
		} else {
			session.Suspend()
		}
	}
}

// observer runs alerts and emits events for every completed refresh.
func (b *Board) observer(frames store.Store, monitor *alert.Monitor, dispatcher *notify.Dispatcher) func(poller.Result) {
	host, _ := os.Hostname()

	return func(r poller.Result) {
		if r.Err != nil {
			return
		}

		if dispatcher != nil {
			dispatcher.Enqueue(notify.Heartbeat(r.CheckedAt, r.Snapshot, r.View))
		}

		if monitor == nil {
			return
		}
		raised := monitor.Check(r.CheckedAt, r.Snapshot)
		for _, a := range raised {
			b.logger.Warn("alert raised", "level", a.Level, "message", a.Message, "attempt_id", r.AttemptID)
			metrics.AlertsTotal.WithLabelValues(a.Level).Inc()
			frames.RecordAlert(store.AlertEntry{Level: a.Level, Message: a.Message, RaisedAt: r.CheckedAt})
			if dispatcher != nil {
				dispatcher.Enqueue(notify.AlertEvent(r.CheckedAt, a.Level, a.Message, host))
			}
		}
	}
}

func (b *Board) closeNotifiers() {
	for _, n := range b.notifiers {
		if err := n.Close(); err != nil {
			b.logger.Warn("failed to close notifier", "error", err)
		}
	}
}

// Target returns the monitored service.
func (b *Board) Target() Target {
	return b.target
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Board) Port() int {
	return b.port
}

// PollingInterval returns the configured interval between refreshes.
func (b *Board) PollingInterval() time.Duration {
	return b.pollingInterval
}

// Title returns the dashboard title.
func (b *Board) Title() string {
	return b.title
}
