package store

import (
	"sync"
	"time"

	"github.com/jpalmerr/mirrorboard/health"
)

const (
	// DefaultHistorySize bounds the frame and alert histories.
	DefaultHistorySize = 100

	subscriberBuffer = 16
)

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive frames via buffered channels. Sends are non-blocking;
// if a subscriber's buffer is full, the frame is dropped for that subscriber
// so a slow browser cannot stall the poll session.
type MemoryStore struct {
	mu      sync.RWMutex
	seq     uint64
	frames  []Frame
	alerts  []AlertEntry
	maxSize int
	now     func() time.Time

	subMu       sync.RWMutex
	subscribers map[chan Frame]struct{}
}

// NewMemoryStore creates a [MemoryStore] retaining up to historySize frames
// and alerts. A non-positive size uses [DefaultHistorySize].
func NewMemoryStore(historySize int) *MemoryStore {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &MemoryStore{
		maxSize:     historySize,
		now:         time.Now,
		subscribers: make(map[chan Frame]struct{}),
	}
}

// Render implements [Store].
func (m *MemoryStore) Render(v health.ViewModel) {
	m.mu.Lock()
	m.seq++
	frame := Frame{Seq: m.seq, RenderedAt: m.now(), View: v}
	m.frames = appendBounded(m.frames, frame, m.maxSize)
	m.mu.Unlock()

	m.notifySubscribers(frame)
}

// Latest implements [Store].
func (m *MemoryStore) Latest() (Frame, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.frames) == 0 {
		return Frame{}, false
	}
	return m.frames[len(m.frames)-1], true
}

// History implements [Store].
func (m *MemoryStore) History() []Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]Frame(nil), m.frames...)
}

// RecordAlert implements [Store]. Entries with a zero RaisedAt are stamped
// with the current time.
func (m *MemoryStore) RecordAlert(entries ...AlertEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if e.RaisedAt.IsZero() {
			e.RaisedAt = m.now()
		}
		m.alerts = appendBounded(m.alerts, e, m.maxSize)
	}
}

// Alerts implements [Store].
func (m *MemoryStore) Alerts() []AlertEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]AlertEntry(nil), m.alerts...)
}

// Subscribe implements [Store].
func (m *MemoryStore) Subscribe() <-chan Frame {
	ch := make(chan Frame, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe implements [Store].
func (m *MemoryStore) Unsubscribe(ch <-chan Frame) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// SubscriberCount implements [Store].
func (m *MemoryStore) SubscriberCount() int {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	return len(m.subscribers)
}

func (m *MemoryStore) notifySubscribers(frame Frame) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- frame:
		default:
			// subscriber is slow, drop the frame
		}
	}
}

// appendBounded appends v and drops the oldest entries beyond limit.
func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if over := len(s) - limit; over > 0 {
		s = append(s[:0:0], s[over:]...)
	}
	return s
}
