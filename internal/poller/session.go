package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/mirrorboard/health"
	"github.com/jpalmerr/mirrorboard/internal/metrics"
)

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = 6 * time.Second

// Diagnostic is shown in place of the module grid after a failed refresh.
const Diagnostic = "Failed to load /status. Is the server running?"

// Fetcher retrieves raw payloads from the monitored service. [*Client]
// implements it.
type Fetcher interface {
	FetchStatus(ctx context.Context) (health.Snapshot, error)
	FetchSafeguards(ctx context.Context) (health.Safeguards, error)
}

// Sink receives every rendered view-model.
//
// Render is called from the refresh goroutine with the session's render
// lock held. It must not block and must not call Suspend, Resume or
// Teardown on the same session.
type Sink interface {
	Render(health.ViewModel)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(health.ViewModel)

// Render calls f(v).
func (f SinkFunc) Render(v health.ViewModel) { f(v) }

// StatusHook receives the raw snapshot after each successful refresh.
type StatusHook func(health.Snapshot)

// State is the lifecycle state of a [Session].
type State int32

const (
	// Idle is a session that has not been started.
	Idle State = iota

	// Active sessions poll on a timer.
	Active

	// Suspended sessions have no timer and no request in flight.
	Suspended

	// Closed sessions are torn down for good.
	Closed
)

// String returns "idle", "active", "suspended" or "closed".
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Suspended:
		return "suspended"
	case Closed:
		return "closed"
	default:
		return "idle"
	}
}

// Result is the outcome of one completed refresh attempt.
// Cancelled attempts produce no Result.
type Result struct {
	AttemptID string

	// Snapshot is the decoded payload. Zero when Err is set.
	Snapshot health.Snapshot

	// Safeguards is the embedded or separately fetched status; nil when
	// neither was available.
	Safeguards *health.Safeguards

	// View is what was rendered.
	View health.ViewModel

	Err       error
	Latency   time.Duration
	CheckedAt time.Time
}

// SessionConfig configures a [Session].
type SessionConfig struct {
	Client Fetcher
	Sink   Sink

	// Interval defaults to [DefaultInterval].
	Interval time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Observer, when set, is called once per completed attempt after
	// rendering. It runs on the refresh goroutine and should not block.
	Observer func(Result)
}

// Session is the poll session: a fixed-period timer, at most one
// outstanding refresh attempt, and the cancellation for that attempt.
//
// A refresh triggered while another is in flight is dropped, not queued.
// Suspend and Teardown cancel the in-flight attempt; a cancelled attempt
// never renders. All methods are safe for concurrent use.
type Session struct {
	client   Fetcher
	sink     Sink
	interval time.Duration
	logger   *slog.Logger
	observer func(Result)

	root       context.Context
	rootCancel context.CancelFunc

	// mu guards the lifecycle fields below. Lock order: mu, then renderMu.
	mu            sync.Mutex
	loopCancel    context.CancelFunc
	attemptCancel context.CancelFunc
	attemptSeq    uint64

	// epoch advances on Suspend and Teardown. An attempt started under an
	// older epoch never begins.
	epoch uint64

	// renderMu serializes rendering against cancellation, so a suspend
	// either happens before the cancelled attempt checks its context or
	// after it has finished rendering.
	renderMu sync.Mutex
	last     health.ViewModel

	state    atomic.Int32
	inFlight atomic.Bool
	idleMu   sync.Mutex
	idle     chan struct{}
	hook     atomic.Pointer[StatusHook]
	wg       sync.WaitGroup
}

// NewSession creates an idle [Session]. Call [Session.Start] to begin
// polling.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sink == nil {
		cfg.Sink = SinkFunc(func(health.ViewModel) {})
	}

	root, cancel := context.WithCancel(context.Background())
	return &Session{
		client:     cfg.Client,
		sink:       cfg.Sink,
		interval:   cfg.Interval,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
		root:       root,
		rootCancel: cancel,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// InFlight reports whether a refresh attempt is outstanding.
func (s *Session) InFlight() bool {
	return s.inFlight.Load()
}

// Interval returns the poll period.
func (s *Session) Interval() time.Duration {
	return s.interval
}

// SetStatusHook registers the raw snapshot hook. Only the most recently
// registered hook is invoked; nil clears it.
func (s *Session) SetStatusHook(h StatusHook) {
	if h == nil {
		s.hook.Store(nil)
		return
	}
	s.hook.Store(&h)
}

// Start makes an idle session active: one immediate refresh, then the
// timer. It is a no-op unless the session is idle.
func (s *Session) Start() {
	s.activate(Idle)
}

// Resume makes a suspended session active again, with an immediate
// refresh. It is a no-op for active and closed sessions.
func (s *Session) Resume() {
	s.activate(Idle, Suspended)
}

func (s *Session) activate(from ...State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.State()
	allowed := false
	for _, st := range from {
		if cur == st {
			allowed = true
		}
	}
	if !allowed {
		return
	}

	if s.loopCancel != nil {
		s.loopCancel()
	}
	loopCtx, cancel := context.WithCancel(s.root)
	s.loopCancel = cancel
	s.setState(Active)

	s.wg.Add(1)
	go s.loop(loopCtx, s.epoch)

	s.logger.Debug("poll session active", "from", cur.String(), "interval", s.interval.String())
}

// Suspend stops the timer and cancels any in-flight attempt. It is a
// no-op unless the session is active.
func (s *Session) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Active {
		return
	}
	if s.loopCancel != nil {
		s.loopCancel()
		s.loopCancel = nil
	}
	s.epoch++
	s.cancelAttemptLocked()
	s.setState(Suspended)

	s.logger.Debug("poll session suspended")
}

// Teardown cancels the timer and any in-flight attempt, then waits for
// all session goroutines to exit. No further refreshes occur. Safe to call
// more than once.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.State() != Closed {
		s.setState(Closed)
		s.epoch++
		s.rootCancel()
		s.loopCancel = nil
		s.cancelAttemptLocked()
		s.logger.Debug("poll session closed")
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Refresh runs one attempt synchronously. ctx can cancel the attempt in
// addition to Suspend and Teardown. It returns false when the attempt was
// dropped because another was in flight or the session is closed.
func (s *Session) Refresh(ctx context.Context) bool {
	epoch := s.currentEpoch()
	if !s.acquire() {
		return false
	}
	if s.State() == Closed {
		s.release()
		return false
	}
	s.run(ctx, epoch)
	return true
}

// Trigger starts one attempt in the background and returns immediately.
// It returns false when the attempt was dropped.
func (s *Session) Trigger() bool {
	return s.trigger(s.currentEpoch())
}

func (s *Session) trigger(epoch uint64) bool {
	if !s.acquire() {
		return false
	}

	s.mu.Lock()
	if s.State() == Closed || s.epoch != epoch {
		s.mu.Unlock()
		s.release()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.run(context.Background(), epoch)
	}()
	return true
}

func (s *Session) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// loop drives the timer for one active period. The first refresh is
// retried until it runs: right after a Resume the attempt cancelled by the
// preceding Suspend may still hold the in-flight flag.
func (s *Session) loop(ctx context.Context, epoch uint64) {
	defer s.wg.Done()

	for !s.trigger(epoch) {
		if s.currentEpoch() != epoch {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-s.waitIdle():
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(epoch)
		}
	}
}

func (s *Session) acquire() bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.RefreshDropped.Inc()
		s.logger.Debug("refresh dropped: attempt in flight")
		return false
	}
	metrics.RefreshInFlight.Set(1)
	return true
}

func (s *Session) release() {
	metrics.RefreshInFlight.Set(0)
	s.inFlight.Store(false)

	s.idleMu.Lock()
	if s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
	s.idleMu.Unlock()
}

// waitIdle returns a channel that is closed once no attempt is in flight.
func (s *Session) waitIdle() <-chan struct{} {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()

	if !s.inFlight.Load() {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	if s.idle == nil {
		s.idle = make(chan struct{})
	}
	return s.idle
}

// run performs one attempt. The caller must hold the in-flight flag; run
// releases it on every exit path.
func (s *Session) run(parent context.Context, epoch uint64) {
	defer s.release()

	id := uuid.NewString()
	logger := s.logger.With("attempt_id", id)

	ctx, seq, ok := s.beginAttempt(epoch)
	if !ok {
		return
	}
	defer s.endAttempt(seq)

	stop := context.AfterFunc(parent, s.cancelAttempt(seq))
	defer stop()

	start := time.Now()
	snap, err := s.client.FetchStatus(ctx)
	var sg *health.Safeguards
	if err == nil {
		sg = s.safeguards(ctx, snap, logger)
	}
	latency := time.Since(start)

	if errors.Is(err, ErrCancelled) {
		s.cancelled(logger)
		return
	}

	s.renderMu.Lock()
	if ctx.Err() != nil {
		s.renderMu.Unlock()
		s.cancelled(logger)
		return
	}
	var view health.ViewModel
	if err != nil {
		view = health.FailedView(s.last, Diagnostic)
	} else {
		view = health.Derive(snap, sg)
		s.last = view
	}
	s.render(view, logger)
	metrics.RecordView(view)
	if err == nil {
		s.invokeHook(snap, logger)
	}
	s.renderMu.Unlock()

	metrics.RefreshDuration.Observe(latency.Seconds())
	logAttrs := []any{"url", s.statusURL(), "latency_ms", latency.Milliseconds(), "pill", view.Pill.Label}
	if err != nil {
		metrics.RefreshTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		logger.Warn("refresh failed", append(logAttrs, "error", err.Error())...)
	} else {
		metrics.RefreshTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		logger.Debug("refresh completed", logAttrs...)
	}

	if s.observer != nil {
		s.observer(Result{
			AttemptID:  id,
			Snapshot:   snap,
			Safeguards: sg,
			View:       view,
			Err:        err,
			Latency:    latency,
			CheckedAt:  time.Now(),
		})
	}
}

// beginAttempt cancels any stale attempt and creates the context for a new
// one, derived from the session root. It refuses when the session closed
// or was suspended after the attempt was scheduled.
func (s *Session) beginAttempt(epoch uint64) (context.Context, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == Closed || s.epoch != epoch {
		return nil, 0, false
	}
	if s.attemptCancel != nil {
		s.attemptCancel()
	}
	ctx, cancel := context.WithCancel(s.root)
	s.attemptSeq++
	s.attemptCancel = cancel
	return ctx, s.attemptSeq, true
}

func (s *Session) endAttempt(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attemptSeq == seq && s.attemptCancel != nil {
		s.attemptCancel()
		s.attemptCancel = nil
	}
}

// cancelAttempt returns a func that cancels attempt seq if it is still
// current.
func (s *Session) cancelAttempt(seq uint64) func() {
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.attemptSeq == seq {
			s.cancelAttemptLocked()
		}
	}
}

// cancelAttemptLocked must be called with mu held.
func (s *Session) cancelAttemptLocked() {
	if s.attemptCancel == nil {
		return
	}
	s.renderMu.Lock()
	s.attemptCancel()
	s.renderMu.Unlock()
	s.attemptCancel = nil
}

// safeguards returns the embedded safeguards, or fetches them separately.
// A failed secondary fetch is absorbed.
func (s *Session) safeguards(ctx context.Context, snap health.Snapshot, logger *slog.Logger) *health.Safeguards {
	if snap.Safeguards != nil {
		return snap.Safeguards
	}
	sg, err := s.client.FetchSafeguards(ctx)
	if err != nil {
		if !errors.Is(err, ErrCancelled) {
			logger.Debug("safeguards fetch failed", "error", fmt.Errorf("%w: %w", ErrSafeguardsUnavailable, err).Error())
		}
		return nil
	}
	return &sg
}

func (s *Session) cancelled(logger *slog.Logger) {
	metrics.RefreshTotal.WithLabelValues(metrics.OutcomeCancelled).Inc()
	logger.Debug("refresh cancelled")
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	metrics.SessionActive.Set(metrics.BoolValue(st == Active))
}

func (s *Session) statusURL() string {
	if c, ok := s.client.(*Client); ok {
		return c.StatusURL()
	}
	return ""
}

// render calls the sink with panic recovery. A panicking sink is logged
// with a correlation ID and the session keeps running.
func (s *Session) render(view health.ViewModel, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("sink panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.sink.Render(view)
}

func (s *Session) invokeHook(snap health.Snapshot, logger *slog.Logger) {
	h := s.hook.Load()
	if h == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status hook panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	(*h)(snap)
}
