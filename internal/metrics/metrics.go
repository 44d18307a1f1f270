// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jpalmerr/mirrorboard/health"
)

// Refresh outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

var (
	// RefreshTotal counts completed refresh attempts by outcome
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirrorboard_refresh_total",
			Help: "Total number of refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	// RefreshDropped counts triggers dropped because an attempt was in flight
	RefreshDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirrorboard_refresh_dropped_total",
			Help: "Total number of refresh triggers dropped while another attempt was in flight",
		},
	)

	// RefreshDuration tracks status fetch latency
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mirrorboard_refresh_duration_seconds",
			Help:    "Refresh attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RefreshInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirrorboard_refresh_in_flight",
			Help: "1 while a refresh attempt is outstanding",
		},
	)

	// SessionActive is 1 while the poll session is active (not suspended)
	SessionActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirrorboard_session_active",
			Help: "1 while the poll session is active",
		},
	)

	PillOK = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirrorboard_pill_ok",
			Help: "1 when the overall pill is healthy",
		},
	)

	// ModuleState is 1 healthy, 0 degraded, -1 failed
	ModuleState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mirrorboard_module_state",
			Help: "Module health: 1 healthy, 0 degraded, -1 failed",
		},
		[]string{"module"},
	)

	// AlertsTotal counts emitted cadence/scroll alerts
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirrorboard_alerts_total",
			Help: "Total number of alerts emitted",
		},
		[]string{"level"},
	)

	// Viewers tracks connected dashboard viewers
	Viewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirrorboard_viewers",
			Help: "Number of connected dashboard viewers",
		},
	)
)

// BoolValue maps true to 1 and false to 0.
func BoolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// RecordView exports the pill and module grid of a rendered view.
// A failed view clears the module series so stale states are not scraped.
func RecordView(v health.ViewModel) {
	PillOK.Set(BoolValue(v.Pill.OK))
	if v.Failing() {
		ModuleState.Reset()
		return
	}
	for _, m := range v.Modules {
		ModuleState.WithLabelValues(m.Name).Set(stateValue(m.State))
	}
}

func stateValue(s health.State) float64 {
	switch s {
	case health.Healthy:
		return 1
	case health.Failed:
		return -1
	default:
		return 0
	}
}
