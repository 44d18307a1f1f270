// Standalone mock Mirror service for trying the dashboard.
//
// Usage:
//
//	go run ./example/cmd/mockmirror
//
// Then in another terminal:
//
//	go run ./cmd/mirrorboard serve -c example/config.yaml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

// mirror holds the drifting state served on /status.
type mirror struct {
	mu      sync.Mutex
	started time.Time
	scrolls int
	answers int
	guiding float64
	tripped bool
}

func (m *mirror) tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scrolls += rand.Intn(3)
	m.answers += 1 + rand.Intn(5)
	// random walk, clamped to a plausible band
	m.guiding += float64(rand.Intn(11) - 5)
	m.guiding = max(40, min(100, m.guiding))
	if rand.Intn(20) == 0 {
		m.tripped = !m.tripped
		slog.Info("temporal breaker flipped", "open", m.tripped)
	}
}

func (m *mirror) status(embedSafeguards bool) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	body := map[string]any{
		"uptime_sec":     int(time.Since(m.started).Seconds()),
		"scrolls_loaded": m.scrolls,
		"requests": map[string]int{
			"total":   m.answers * 3,
			"answers": m.answers,
			"errors":  m.answers / 25,
		},
		"env": map[string]any{
			"LLM_PROVIDER": "local",
			"LLM_MODEL":    "mirror-7b",
			"DEBUG":        false,
		},
		"ledger":   map[string]int{"count": m.answers / 2},
		"learning": []string{},
		"cadence": map[string]any{
			"answers":      m.answers,
			"traveler_pct": 95,
			"guiding_pct":  m.guiding,
			"symbols_pct":  88,
		},
	}
	if embedSafeguards {
		body["safeguards"] = m.safeguardsLocked()
	}
	return body
}

func (m *mirror) safeguards() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.safeguardsLocked()
}

func (m *mirror) safeguardsLocked() map[string]any {
	temporal := "closed"
	if m.tripped {
		temporal = "open"
	}
	return map[string]any{
		"temporal":             map[string]any{"state": temporal},
		"symbol":               map[string]any{"state": "closed"},
		"conversation":         map[string]any{"state": "closed"},
		"privacy_filter":       "active",
		"confidence_validator": "active",
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	embed := flag.Bool("embed-safeguards", false, "embed safeguards in /status instead of serving them separately")
	flag.Parse()

	m := &mirror{started: time.Now(), guiding: 90}
	go func() {
		for range time.Tick(2 * time.Second) {
			m.tick()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)
		writeJSON(w, m.status(*embed))
	})
	mux.HandleFunc("GET /safeguards/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, m.safeguards())
	})

	fmt.Printf("Mock Mirror service starting on %s\n", *addr)
	fmt.Println("Guiding cadence drifts; the temporal breaker flips now and then")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if err := http.ListenAndServe(*addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
		os.Exit(1)
	}
}
