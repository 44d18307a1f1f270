// Package alert raises cadence and scroll alerts from status snapshots.
package alert

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/jpalmerr/mirrorboard/health"
)

// Alert levels.
const (
	LevelWarning  = "WARNING"
	LevelCritical = "CRITICAL"
)

// Default thresholds.
const (
	DefaultWarnPct    = 80
	DefaultBadPct     = 60
	DefaultMinScrolls = 0
	DefaultCooldown   = 5 * time.Minute
)

// Alert is one raised condition.
type Alert struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// CadenceLimits holds per-metric percentage limits.
type CadenceLimits struct {
	Guiding  float64 `json:"guiding" yaml:"guiding"`
	Traveler float64 `json:"traveler" yaml:"traveler"`
	Symbols  float64 `json:"symbols" yaml:"symbols"`
}

// Thresholds configures alert evaluation. A percentage below Bad is
// critical, below Warn a warning.
type Thresholds struct {
	Warn       CadenceLimits
	Bad        CadenceLimits
	MinScrolls float64
	Cooldown   time.Duration
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Warn:       CadenceLimits{Guiding: DefaultWarnPct, Traveler: DefaultWarnPct, Symbols: DefaultWarnPct},
		Bad:        CadenceLimits{Guiding: DefaultBadPct, Traveler: DefaultBadPct, Symbols: DefaultBadPct},
		MinScrolls: DefaultMinScrolls,
		Cooldown:   DefaultCooldown,
	}
}

// Validate checks that every bad limit is at or below its warn limit and
// that the cooldown is not negative.
func (t Thresholds) Validate() error {
	pairs := []struct {
		name      string
		warn, bad float64
	}{
		{"guiding", t.Warn.Guiding, t.Bad.Guiding},
		{"traveler", t.Warn.Traveler, t.Bad.Traveler},
		{"symbols", t.Warn.Symbols, t.Bad.Symbols},
	}
	for _, p := range pairs {
		if p.bad > p.warn {
			return fmt.Errorf("%s: bad threshold %.1f exceeds warn threshold %.1f", p.name, p.bad, p.warn)
		}
	}
	if t.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative, got %s", t.Cooldown)
	}
	return nil
}

// Evaluate returns the alerts raised by a snapshot, in guiding, traveler,
// symbols, scrolls order. Cadence is judged only once answers have been
// counted; an absent percentage counts as 100.
func Evaluate(s health.Snapshot, t Thresholds) []Alert {
	var alerts []Alert

	if s.CadenceAnswers() > 0 {
		checks := []struct {
			label, key string
			warn, bad  float64
		}{
			{"Guiding", "guiding", t.Warn.Guiding, t.Bad.Guiding},
			{"Traveler", "traveler", t.Warn.Traveler, t.Bad.Traveler},
			{"Symbols", "symbols", t.Warn.Symbols, t.Bad.Symbols},
		}
		for _, c := range checks {
			pct := s.CadencePct(c.key)
			switch {
			case pct < c.bad:
				alerts = append(alerts, Alert{LevelCritical, fmt.Sprintf("%s cadence critically low: %.1f%%", c.label, pct)})
			case pct < c.warn:
				alerts = append(alerts, Alert{LevelWarning, fmt.Sprintf("%s cadence low: %.1f%%", c.label, pct)})
			}
		}
	}

	if scrolls := s.Scrolls(); scrolls <= t.MinScrolls {
		alerts = append(alerts, Alert{LevelWarning, fmt.Sprintf("Scrolls loaded (%s) below minimum threshold", health.Num(scrolls).String())})
	}
	return alerts
}

// Monitor applies a cooldown between alert batches.
type Monitor struct {
	thresholds Thresholds
	limiter    *rate.Limiter
}

// NewMonitor creates a [Monitor]. A zero cooldown disables suppression.
func NewMonitor(t Thresholds) *Monitor {
	limit := rate.Inf
	if t.Cooldown > 0 {
		limit = rate.Every(t.Cooldown)
	}
	return &Monitor{
		thresholds: t,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Thresholds returns the configured thresholds.
func (m *Monitor) Thresholds() Thresholds {
	return m.thresholds
}

// Check evaluates s at time now. It returns nil when nothing is raised or
// when the previous batch was raised less than one cooldown ago. Only a
// non-empty batch starts a new cooldown.
func (m *Monitor) Check(now time.Time, s health.Snapshot) []Alert {
	alerts := Evaluate(s, m.thresholds)
	if len(alerts) == 0 {
		return nil
	}
	if !m.limiter.AllowN(now, 1) {
		return nil
	}
	return alerts
}
