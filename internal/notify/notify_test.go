package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/mirrorboard/health"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
	block  chan struct{}
}

func (r *recordingNotifier) Notify(ctx context.Context, e Event) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingNotifier) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestHeartbeat(t *testing.T) {
	s, err := health.ParseSnapshot([]byte(`{"scrolls_loaded": 7, "requests": {"ask": 12}}`))
	require.NoError(t, err)
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.FixedZone("x", 3600))

	e := Heartbeat(now, s, health.Derive(s, nil))

	assert.Equal(t, StreamStatus, e.Stream)
	assert.Equal(t, "heartbeat", e.Payload["evt"])
	assert.Equal(t, "2026-05-06T06:08:09Z", e.Payload["ts"])
	assert.Equal(t, 7.0, e.Payload["scrolls_loaded"])
	assert.Equal(t, true, e.Payload["pill_ok"])
	assert.Equal(t, 12.0, e.Payload["requests_ask"])
}

func TestAlertEvent(t *testing.T) {
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	e := AlertEvent(now, "CRITICAL", "Guiding cadence critically low: 10.0%", "host-1")

	assert.Equal(t, StreamAlert, e.Stream)
	assert.Equal(t, map[string]any{
		"ts":      "2026-05-06T07:08:09Z",
		"level":   "CRITICAL",
		"message": "Guiding cadence critically low: 10.0%",
		"host":    "host-1",
	}, e.Payload)
}

func TestHTTPNotifier(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPath  string
		gotAuth  string
		gotEvent Event
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotEvent)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n, err := NewHTTP(HTTPConfig{URL: server.URL + "/", APIKey: "k3y"})
	require.NoError(t, err)
	defer n.Close()

	require.NoError(t, n.Notify(context.Background(), AlertEvent(time.Now(), "WARNING", "m", "h")))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/events", gotPath)
	assert.Equal(t, "Bearer k3y", gotAuth)
	assert.Equal(t, StreamAlert, gotEvent.Stream)
	assert.Equal(t, "m", gotEvent.Payload["message"])
}

func TestHTTPNotifier_Errors(t *testing.T) {
	_, err := NewHTTP(HTTPConfig{})
	assert.Error(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	n, err := NewHTTP(HTTPConfig{URL: server.URL})
	require.NoError(t, err)
	err = n.Notify(context.Background(), Event{Stream: StreamStatus})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisConfig{URL: "http://not-redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis URL")
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedis(ctx, RedisConfig{URL: "redis://127.0.0.1:1/0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestRedisNotifier_StreamKey(t *testing.T) {
	n := &RedisNotifier{prefix: DefaultStreamPrefix}
	assert.Equal(t, "mirror:alert", n.StreamKey(StreamAlert))
}

func TestMulti(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{err: errors.New("sink down")}
	c := &recordingNotifier{}
	m := Multi{a, b, c}

	err := m.Notify(context.Background(), Event{Stream: StreamStatus})
	require.Error(t, err)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
	assert.Equal(t, 1, c.count(), "later notifiers still receive events")

	require.Error(t, m.Close())
	assert.True(t, a.closed)
	assert.True(t, c.closed)
}

func TestDispatcher_Delivers(t *testing.T) {
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, 4, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		assert.True(t, d.Enqueue(Event{Stream: StreamStatus}))
	}

	assert.Eventually(t, func() bool { return rec.count() == 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	rec := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(rec, 2, testLogger())

	// not running: the queue fills up
	assert.True(t, d.Enqueue(Event{Stream: "a"}))
	assert.True(t, d.Enqueue(Event{Stream: "b"}))
	assert.False(t, d.Enqueue(Event{Stream: "c"}))
	assert.Equal(t, uint64(1), d.Dropped())
}

func TestDispatcher_ErrorsDoNotStopLoop(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("boom")}
	d := NewDispatcher(rec, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	d.Enqueue(Event{Stream: StreamAlert})
	d.Enqueue(Event{Stream: StreamAlert})

	assert.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 5*time.Millisecond)
}
