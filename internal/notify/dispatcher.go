package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// DefaultQueueSize bounds the dispatcher queue.
const DefaultQueueSize = 64

// Dispatcher delivers events from a bounded queue on a single goroutine,
// so slow sinks never stall the poll session. Events enqueued while the
// queue is full are dropped.
type Dispatcher struct {
	notifier Notifier
	queue    chan Event
	logger   *slog.Logger
	dropped  atomic.Uint64
}

// NewDispatcher creates a [Dispatcher]. A non-positive size uses
// [DefaultQueueSize].
func NewDispatcher(n Notifier, size int, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifier: n,
		queue:    make(chan Event, size),
		logger:   logger,
	}
}

// Enqueue queues e without blocking. It reports false when e was dropped.
func (d *Dispatcher) Enqueue(e Event) bool {
	select {
	case d.queue <- e:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("event queue full, dropping event", "stream", e.Stream)
		return false
	}
}

// Dropped returns the number of events dropped so far.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Run delivers queued events until ctx is cancelled. Delivery errors are
// logged and never stop the loop. Run always returns nil.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-d.queue:
			if err := d.notifier.Notify(ctx, e); err != nil && ctx.Err() == nil {
				d.logger.Warn("event delivery failed", "stream", e.Stream, "error", err.Error())
			}
		}
	}
}
