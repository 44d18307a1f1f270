package mirrorboard

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/jpalmerr/mirrorboard/health"
)

func testTarget(t *testing.T) Target {
	t.Helper()
	target, err := NewTarget("mirror", "http://localhost:8000")
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}
	return target
}

func TestNew_Valid(t *testing.T) {
	board, err := New(WithTarget(testTarget(t)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if board.Target().Name() != "mirror" {
		t.Errorf("Target().Name() = %q, want %q", board.Target().Name(), "mirror")
	}
}

func TestNew_NoTarget(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Error("New() expected error for missing target, got nil")
	}
}

func TestNew_Defaults(t *testing.T) {
	board, err := New(WithTarget(testTarget(t)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if board.PollingInterval() != 6*time.Second {
		t.Errorf("PollingInterval() = %v, want %v", board.PollingInterval(), 6*time.Second)
	}
	if board.Port() != 8080 {
		t.Errorf("Port() = %v, want %v", board.Port(), 8080)
	}
	if board.Title() != "Mirrorboard" {
		t.Errorf("Title() = %q, want %q", board.Title(), "Mirrorboard")
	}
	if board.logger != slog.Default() {
		t.Error("logger should default to slog.Default()")
	}
	if board.suspendWhenIdle {
		t.Error("suspendWhenIdle should default to false")
	}
	if board.alerts != nil {
		t.Error("alerts should be off by default")
	}
}

func TestWithTarget_LastWins(t *testing.T) {
	other, _ := NewTarget("other", "http://other:9000")

	board, err := New(WithTarget(testTarget(t)), WithTarget(other))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if board.Target().Name() != "other" {
		t.Errorf("Target().Name() = %q, want %q", board.Target().Name(), "other")
	}
}

func TestWithPollingInterval(t *testing.T) {
	board, err := New(WithTarget(testTarget(t)), WithPollingInterval(30*time.Second))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if board.PollingInterval() != 30*time.Second {
		t.Errorf("PollingInterval() = %v, want %v", board.PollingInterval(), 30*time.Second)
	}
}

func TestWithPollingInterval_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
	}{
		{"zero", 0},
		{"negative", -1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithTarget(testTarget(t)), WithPollingInterval(tt.interval))
			if err == nil {
				t.Errorf("New() expected error for interval %v, got nil", tt.interval)
			}
		})
	}
}

func TestWithPort(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"min", 1, false},
		{"max", 65535, false},
		{"typical", 9090, false},
		{"zero", 0, true},
		{"negative", -1, true},
		{"too large", 65536, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board, err := New(WithTarget(testTarget(t)), WithPort(tt.port))
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && board.Port() != tt.port {
				t.Errorf("Port() = %v, want %v", board.Port(), tt.port)
			}
		})
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	board, err := New(WithTarget(testTarget(t)), WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if board.logger != logger {
		t.Error("logger not set")
	}
}

func TestWithLogger_Nil(t *testing.T) {
	_, err := New(WithTarget(testTarget(t)), WithLogger(nil))
	if err == nil {
		t.Error("New() expected error for nil logger, got nil")
	}
}

func TestWithTitle(t *testing.T) {
	board, err := New(WithTarget(testTarget(t)), WithTitle("Mirror V4"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if board.Title() != "Mirror V4" {
		t.Errorf("Title() = %q, want %q", board.Title(), "Mirror V4")
	}
}

func TestWithStatusHook_LastWins(t *testing.T) {
	var called string
	board, err := New(
		WithTarget(testTarget(t)),
		WithStatusHook(func(health.Snapshot) { called = "first" }),
		WithStatusHook(func(health.Snapshot) { called = "second" }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	board.statusHook(health.Snapshot{})
	if called != "second" {
		t.Errorf("called = %q, want %q", called, "second")
	}
}

func TestWithStatusHook_NilClears(t *testing.T) {
	board, err := New(
		WithTarget(testTarget(t)),
		WithStatusHook(func(health.Snapshot) {}),
		WithStatusHook(nil),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if board.statusHook != nil {
		t.Error("nil hook should clear the slot")
	}
}

func TestWithAlerts(t *testing.T) {
	board, err := New(WithTarget(testTarget(t)), WithAlerts(DefaultAlertThresholds()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if board.alerts == nil {
		t.Fatal("alerts not set")
	}
	if board.alerts.Warn.Guiding != 80 || board.alerts.Bad.Guiding != 60 {
		t.Errorf("thresholds = %+v, want warn 80 bad 60", *board.alerts)
	}
}

func TestWithAlerts_Invalid(t *testing.T) {
	th := DefaultAlertThresholds()
	th.Bad.Traveler = 90 // above warn

	_, err := New(WithTarget(testTarget(t)), WithAlerts(th))
	if err == nil {
		t.Error("New() expected error for bad limit above warn limit, got nil")
	}
}

func TestWithNotifier(t *testing.T) {
	n1, n2 := &recordingNotifier{}, &recordingNotifier{}

	board, err := New(
		WithTarget(testTarget(t)),
		WithNotifier(n1),
		WithNotifier(nil),
		WithNotifier(n2),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(board.notifiers) != 2 {
		t.Errorf("len(notifiers) = %d, want 2 (nil ignored)", len(board.notifiers))
	}
}

func TestWithSuspendWhenIdle(t *testing.T) {
	board, err := New(WithTarget(testTarget(t)), WithSuspendWhenIdle(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !board.suspendWhenIdle {
		t.Error("suspendWhenIdle not set")
	}
}
