package tui

import "github.com/jpalmerr/mirrorboard/health"

// Sink hands rendered view-models to the terminal program. It keeps only
// the newest undelivered view, so Render never blocks the poll session.
type Sink struct {
	ch chan health.ViewModel
}

// NewSink creates an empty [Sink].
func NewSink() *Sink {
	return &Sink{ch: make(chan health.ViewModel, 1)}
}

// Render implements poller.Sink. A view the program has not picked up yet
// is replaced.
func (s *Sink) Render(v health.ViewModel) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Views returns the delivery channel.
func (s *Sink) Views() <-chan health.ViewModel {
	return s.ch
}
