// Package notify ships status heartbeats and alerts to external event
// sinks.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/jpalmerr/mirrorboard/health"
)

// Stream names.
const (
	StreamStatus = "status"
	StreamAlert  = "alert"
)

// Event is one payload destined for a named stream.
type Event struct {
	Stream  string         `json:"stream"`
	Payload map[string]any `json:"payload"`
}

// Notifier delivers events to an external sink.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
	Close() error
}

// Heartbeat builds the status stream event sent after a successful poll.
func Heartbeat(now time.Time, s health.Snapshot, v health.ViewModel) Event {
	return Event{
		Stream: StreamStatus,
		Payload: map[string]any{
			"evt":            "heartbeat",
			"ts":             timestamp(now),
			"scrolls_loaded": s.Scrolls(),
			"pill_ok":        v.Pill.OK,
			"requests_ask":   s.RequestCount("ask"),
		},
	}
}

// AlertEvent builds the alert stream event for one raised alert.
func AlertEvent(now time.Time, level, message, host string) Event {
	return Event{
		Stream: StreamAlert,
		Payload: map[string]any{
			"ts":      timestamp(now),
			"level":   level,
			"message": message,
			"host":    host,
		},
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Multi fans events out to several notifiers. Every notifier is tried;
// errors are joined.
type Multi []Notifier

// Notify implements [Notifier].
func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements [Notifier].
func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
