package mirrorboard

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/mirrorboard/health"
	"github.com/jpalmerr/mirrorboard/internal/alert"
	"github.com/jpalmerr/mirrorboard/internal/notify"
)

// AlertThresholds configures cadence and scroll alerts. See
// [DefaultAlertThresholds].
type AlertThresholds = alert.Thresholds

// CadenceLimits holds per-metric cadence percentage limits.
type CadenceLimits = alert.CadenceLimits

// Notifier delivers status heartbeats and alerts to an external sink.
type Notifier = notify.Notifier

// Event is one notifier payload.
type Event = notify.Event

// StatusHook receives every successfully fetched status snapshot.
type StatusHook func(health.Snapshot)

// DefaultAlertThresholds returns warn 80%, bad 60%, min scrolls 0 and a
// five minute cooldown.
func DefaultAlertThresholds() AlertThresholds {
	return alert.DefaultThresholds()
}

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title           string
	target          *Target
	pollingInterval time.Duration
	port            int
	logger          *slog.Logger
	statusHook      StatusHook
	suspendWhenIdle bool
	alerts          *AlertThresholds
	notifiers       []Notifier
}

// Option configures a [Board] during construction.
//
// Built-in options: [WithTarget], [WithPollingInterval], [WithPort],
// [WithTitle], [WithLogger], [WithStatusHook], [WithSuspendWhenIdle],
// [WithAlerts], [WithNotifier].
type Option func(*boardConfig) error

// WithTarget sets the monitored service. Required.
//
// Example:
//
//	target, _ := mirrorboard.NewTarget("mirror", "http://localhost:8000")
//	board, err := mirrorboard.New(mirrorboard.WithTarget(target))
func WithTarget(t Target) Option {
	return func(cfg *boardConfig) error {
		cfg.target = &t
		return nil
	}
}

// WithPollingInterval sets the time between refreshes while the session
// is active. Defaults to 6 seconds.
//
// Example:
//
//	board, err := mirrorboard.New(
//	    mirrorboard.WithTarget(target),
//	    mirrorboard.WithPollingInterval(15*time.Second),
//	)
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server. Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the dashboard title shown in the browser tab and header.
// Defaults to "Mirrorboard".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStatusHook registers a function called with every successfully
// fetched snapshot, after the dashboard has rendered it. Failed and
// cancelled refreshes do not call it.
//
// There is a single hook slot: a later WithStatusHook replaces an earlier
// one, and a nil hook clears it.
//
// The hook runs on the refresh goroutine and must not block. Panics are
// recovered and logged with a correlation ID.
//
// Example:
//
//	board, err := mirrorboard.New(
//	    mirrorboard.WithTarget(target),
//	    mirrorboard.WithStatusHook(func(s health.Snapshot) {
//	        log.Printf("scrolls loaded: %v", s.Scrolls())
//	    }),
//	)
func WithStatusHook(h StatusHook) Option {
	return func(cfg *boardConfig) error {
		cfg.statusHook = h
		return nil
	}
}

// WithSuspendWhenIdle suspends polling while no browser has the dashboard
// visible and resumes, with an immediate refresh, when one returns. The
// session still starts active so the first frame is ready. Defaults to
// false for SDK users.
func WithSuspendWhenIdle(enabled bool) Option {
	return func(cfg *boardConfig) error {
		cfg.suspendWhenIdle = enabled
		return nil
	}
}

// WithAlerts enables cadence and scroll alerts with the given thresholds.
// Raised alerts appear on /api/alerts and are sent to every notifier.
//
// Returns an error if the thresholds are inconsistent.
func WithAlerts(t AlertThresholds) Option {
	return func(cfg *boardConfig) error {
		if err := t.Validate(); err != nil {
			return err
		}
		cfg.alerts = &t
		return nil
	}
}

// WithNotifier adds an event sink for heartbeats and alerts. May be
// called more than once; every notifier receives every event.
//
// Nil notifiers are ignored.
func WithNotifier(n Notifier) Option {
	return func(cfg *boardConfig) error {
		if n == nil {
			return nil
		}
		cfg.notifiers = append(cfg.notifiers, n)
		return nil
	}
}
