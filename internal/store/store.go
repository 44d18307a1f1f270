package store

import (
	"time"

	"github.com/jpalmerr/mirrorboard/health"
)

// Frame is one rendered view-model, as served by the REST API and SSE.
type Frame struct {
	// Seq increases by one for every rendered frame, starting at 1.
	Seq uint64 `json:"seq"`

	// RenderedAt is when the session rendered the view.
	RenderedAt time.Time `json:"rendered_at"`

	View health.ViewModel `json:"view"`
}

// AlertEntry is the storage representation of a raised alert.
type AlertEntry struct {
	Level    string    `json:"level"`
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raised_at"`
}

// Store keeps the latest frame, bounded frame and alert history, and fans
// frames out to subscribers.
//
// Store implementations must be safe for concurrent access. A Store is a
// poll session sink: Render must not block.
type Store interface {
	// Render records a view-model as the next frame and notifies all
	// subscribers.
	Render(v health.ViewModel)

	// Latest returns the most recent frame, or false before the first
	// render.
	Latest() (Frame, bool)

	// History returns retained frames, oldest first. The slice is a copy.
	History() []Frame

	// RecordAlert appends alerts to the alert history.
	RecordAlert(entries ...AlertEntry)

	// Alerts returns retained alerts, oldest first. The slice is a copy.
	Alerts() []AlertEntry

	// Subscribe returns a channel that receives frames.
	// The returned channel has a buffer; slow consumers may miss frames.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Frame

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Frame)

	// SubscriberCount returns the number of active subscriptions.
	SubscriberCount() int
}
