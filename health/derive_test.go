package health

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, payload string) Snapshot {
	t.Helper()
	s, err := ParseSnapshot([]byte(payload))
	require.NoError(t, err)
	return s
}

func moduleNames(v ViewModel) []string {
	names := make([]string, 0, len(v.Modules))
	for _, m := range v.Modules {
		names = append(names, m.Name)
	}
	return names
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		sec  float64
		want string
	}{
		{0, "0h 0m 0s"},
		{59, "0h 0m 59s"},
		{60, "0h 1m 0s"},
		{3599, "0h 59m 59s"},
		{3600, "1h 0m 0s"},
		{3661.9, "1h 1m 1s"},
		{90061, "25h 1m 1s"},
		{-5, "0h 0m 0s"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.sec), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUptime(tt.sec))
		})
	}
}

func TestFormatUptime_ComponentWise(t *testing.T) {
	for sec := 0; sec < 20000; sec += 37 {
		h := sec / 3600
		m := (sec % 3600) / 60
		s := sec % 60
		assert.Equal(t, fmt.Sprintf("%dh %dm %ds", h, m, s), FormatUptime(float64(sec)))
	}
}

func TestDerive_ScenarioA_HealthyWithoutAnswers(t *testing.T) {
	v := Derive(mustParse(t, `{"scrolls_loaded": 5, "cadence": {"answers": 0}}`), nil)

	assert.Equal(t, Pill{OK: true, Label: "Healthy"}, v.Pill)
	retriever, ok := v.Module("Retriever")
	require.True(t, ok)
	assert.Equal(t, Healthy, retriever.State)
	assert.Equal(t, Healthy, v.FlowState(NodeRetriever))
}

func TestDerive_ScenarioB_NoScrolls(t *testing.T) {
	t.Run("ledger absent", func(t *testing.T) {
		v := Derive(mustParse(t, `{"scrolls_loaded": 0}`), nil)

		assert.False(t, v.Pill.OK)
		assert.Equal(t, "Degraded", v.Pill.Label)
		retriever, _ := v.Module("Retriever")
		assert.Equal(t, Failed, retriever.State)
		assert.Equal(t, Failed, v.FlowState(NodeRetriever))
		assert.Equal(t, Degraded, v.FlowState(NodeLedger))
	})

	t.Run("ledger present", func(t *testing.T) {
		v := Derive(mustParse(t, `{"scrolls_loaded": 0, "ledger": {"count": 4}}`), nil)

		assert.False(t, v.Pill.OK)
		assert.Equal(t, Healthy, v.FlowState(NodeLedger))
		ledger, _ := v.Module("Ledger")
		assert.Equal(t, Healthy, ledger.State)
	})
}

func TestDerive_ScenarioC_CadenceBelowFloor(t *testing.T) {
	v := Derive(mustParse(t, `{"scrolls_loaded": 3, "cadence": {"answers": 10, "traveler_pct": 95, "guiding_pct": 100, "symbols_pct": 100}}`), nil)
	assert.False(t, v.Pill.OK)
}

func TestDerive_PillIgnoresCadenceWithoutAnswers(t *testing.T) {
	for _, scrolls := range []int{-1, 0, 1, 50} {
		payload := fmt.Sprintf(`{"scrolls_loaded": %d, "cadence": {"answers": 0, "traveler_pct": 1, "guiding_pct": 2, "symbols_pct": 3}}`, scrolls)
		v := Derive(mustParse(t, payload), nil)
		assert.Equal(t, scrolls > 0, v.Pill.OK, "scrolls=%d", scrolls)
	}
}

func TestDerive_PillCadenceThresholds(t *testing.T) {
	tests := []struct {
		name    string
		cadence string
		want    bool
	}{
		{"all at floor", `{"answers": 3, "traveler_pct": 99, "guiding_pct": 99, "symbols_pct": 99}`, true},
		{"all absent default to 100", `{"answers": 3}`, true},
		{"traveler low", `{"answers": 3, "traveler_pct": 98.9}`, false},
		{"guiding low", `{"answers": 3, "guiding_pct": 50}`, false},
		{"symbols low", `{"answers": 3, "symbols_pct": 0}`, false},
		{"answers as string", `{"answers": "3", "symbols_pct": 10}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Derive(mustParse(t, `{"scrolls_loaded": 7, "cadence": `+tt.cadence+`}`), nil)
			assert.Equal(t, tt.want, v.Pill.OK)
		})
	}
}

func TestDerive_NoScrollsAlwaysFailsRetriever(t *testing.T) {
	payloads := []string{
		`{}`,
		`{"scrolls_loaded": null}`,
		`{"scrolls_loaded": -3, "ledger": {"entries": 9}, "cadence": {"answers": 5}}`,
		`{"scrolls_loaded": "nope", "env": {"LLM_BASE_URL": "http://llm"}}`,
	}

	for _, p := range payloads {
		v := Derive(mustParse(t, p), nil)
		retriever, _ := v.Module("Retriever")
		assert.Equal(t, Failed, retriever.State, p)
		assert.False(t, v.Pill.OK, p)
	}
}

func TestDerive_Header(t *testing.T) {
	t.Run("populated", func(t *testing.T) {
		v := Derive(mustParse(t, `{"uptime_sec": 3725.6, "scrolls_loaded": 12, "env": {"LLM_BASE_URL": "http://llm:8080", "LLM_MODEL": "mirror-7b"}}`), nil)
		assert.Equal(t, Header{Uptime: "1h 2m 5s", Scrolls: "12", LLM: "ON", Model: "mirror-7b"}, v.Header)
	})

	t.Run("empty payload", func(t *testing.T) {
		v := Derive(Snapshot{}, nil)
		assert.Equal(t, Header{Uptime: "0h 0m 0s", Scrolls: Placeholder, LLM: "OFF", Model: Placeholder}, v.Header)
	})

	t.Run("empty llm url is off", func(t *testing.T) {
		v := Derive(mustParse(t, `{"env": {"LLM_BASE_URL": "", "LLM_MODEL": ""}}`), nil)
		assert.Equal(t, "OFF", v.Header.LLM)
		assert.Equal(t, Placeholder, v.Header.Model)
	})

	t.Run("falsy env values", func(t *testing.T) {
		for _, env := range []string{
			`{"LLM_BASE_URL": false, "LLM_MODEL": false}`,
			`{"LLM_BASE_URL": 0, "LLM_MODEL": 0}`,
			`{"LLM_BASE_URL": null, "LLM_MODEL": null}`,
		} {
			v := Derive(mustParse(t, `{"env": `+env+`}`), nil)
			assert.Equal(t, "OFF", v.Header.LLM, env)
			assert.Equal(t, Placeholder, v.Header.Model, env)
		}
	})

	t.Run("truthy non-string model", func(t *testing.T) {
		v := Derive(mustParse(t, `{"env": {"LLM_BASE_URL": true, "LLM_MODEL": 7}}`), nil)
		assert.Equal(t, "ON", v.Header.LLM)
		assert.Equal(t, "7", v.Header.Model)
	})
}

func TestDerive_ModuleOrder(t *testing.T) {
	base := []string{"Guard", "Guide", "Retriever", "Synthesis", "Memory", "Resonance", "Lucidity", "Ledger", "Learning"}

	t.Run("no flags", func(t *testing.T) {
		v := Derive(mustParse(t, `{"env": {"TEMPORAL_CONTEXT": false, "SYMBOL_RESONANCE": ""}}`), nil)
		assert.Equal(t, base, moduleNames(v))
	})

	t.Run("all flags", func(t *testing.T) {
		v := Derive(mustParse(t, `{"env": {"CONVERSATION_WEAVE": true, "TEMPORAL_CONTEXT": true, "SYMBOL_RESONANCE": 1}}`), nil)
		want := append(append([]string(nil), base...), "Temporal Context", "Symbol Resonance", "Conversation Weaver")
		assert.Equal(t, want, moduleNames(v))
		for _, m := range v.Modules[len(base):] {
			assert.Equal(t, Healthy, m.State, m.Name)
		}
	})

	t.Run("one flag", func(t *testing.T) {
		v := Derive(mustParse(t, `{"env": {"SYMBOL_RESONANCE": "yes"}}`), nil)
		names := moduleNames(v)
		assert.Equal(t, "Symbol Resonance", names[len(names)-1])
		assert.Len(t, names, len(base)+1)
	})
}

func TestDerive_ModuleDescriptions(t *testing.T) {
	v := Derive(mustParse(t, `{"env": {"HARMONY_THRESHOLD": 0.62}, "ledger": {"entries": 17}}`), nil)

	resonance, _ := v.Module("Resonance")
	assert.Equal(t, "Harmony threshold = 0.62", resonance.Description)
	ledger, _ := v.Module("Ledger")
	assert.Equal(t, "entries: 17", ledger.Description)
	assert.Equal(t, Healthy, ledger.State)

	v = Derive(Snapshot{}, nil)
	resonance, _ = v.Module("Resonance")
	assert.Equal(t, "Harmony threshold = —", resonance.Description)
	ledger, _ = v.Module("Ledger")
	assert.Equal(t, "entries: 0", ledger.Description)
}

func TestDerive_LedgerAsymmetry(t *testing.T) {
	v := Derive(mustParse(t, `{"scrolls_loaded": 2, "ledger": {"count": 0}}`), nil)

	ledger, _ := v.Module("Ledger")
	assert.Equal(t, Failed, ledger.State)
	assert.Equal(t, Degraded, v.FlowState(NodeLedger))
	// the ledger never affects the pill
	assert.True(t, v.Pill.OK)
}

func TestDerive_LearningAlwaysHealthy(t *testing.T) {
	for _, learning := range []string{`[]`, `[{"q": 1}]`, `null`, `{"items": 3}`, `"x"`} {
		v := Derive(mustParse(t, `{"learning": `+learning+`}`), nil)
		m, _ := v.Module("Learning")
		assert.Equal(t, Healthy, m.State, learning)
	}
}

func TestDerive_FlowDefaults(t *testing.T) {
	v := Derive(mustParse(t, `{"scrolls_loaded": 1, "ledger": {"count": 1}}`), nil)

	require.Len(t, v.Flow, len(FlowNodes))
	for _, node := range FlowNodes {
		assert.Equal(t, Healthy, v.FlowState(node), node)
	}
}

func TestDerive_Requests(t *testing.T) {
	v := Derive(mustParse(t, `{"requests": {"status": 12, "ask": 3, "heartbeat": 0.5}}`), nil)

	assert.Equal(t, []Field{
		{Key: "ask", Value: "3"},
		{Key: "heartbeat", Value: "0.5"},
		{Key: "status", Value: "12"},
	}, v.Requests)
}

func TestDerive_Safeguards(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		v := Derive(Snapshot{}, nil)
		assert.Equal(t, []Field{{Key: "Circuit Breakers", Value: "—"}}, v.Safeguards)
	})

	t.Run("full", func(t *testing.T) {
		sg, err := ParseSafeguards([]byte(`{
			"temporal": {"name": "temporal", "state": "closed", "failures": 0},
			"symbol": {"state": "open"},
			"conversation": "half_open",
			"privacy_filter": "active",
			"confidence_validator": "active"
		}`))
		require.NoError(t, err)

		v := Derive(Snapshot{}, &sg)
		assert.Equal(t, []Field{
			{Key: "Circuit Breakers", Value: "closed/open/half_open"},
			{Key: "Privacy Filter", Value: "active"},
			{Key: "Confidence Validator", Value: "active"},
		}, v.Safeguards)
	})

	t.Run("breakers without state", func(t *testing.T) {
		sg := Safeguards{Temporal: &Breaker{}, Symbol: &Breaker{State: "closed"}}
		v := Derive(Snapshot{}, &sg)
		assert.Equal(t, []Field{{Key: "Circuit Breakers", Value: "closed"}}, v.Safeguards)
	})
}

func TestDerive_EnvLine(t *testing.T) {
	v := Derive(mustParse(t, `{"env": {"SCROLLS_DIR": "/data/scrolls", "LLM_MODEL": "m", "TEMPORAL_CONTEXT": true, "SYMBOL_RESONANCE": false}}`), nil)
	assert.Equal(t, "SCROLLS_DIR=/data/scrolls · MODEL=m · TEMPORAL=true · SYMBOLS=false · CONV=—", v.Env)
}

func TestDerive_Cadence(t *testing.T) {
	v := Derive(mustParse(t, `{"cadence": {"answers": 4, "traveler_pct": 75, "guiding_pct": 100}}`), nil)
	assert.Equal(t, []Field{
		{Key: "Answers", Value: "4"},
		{Key: "Traveler", Value: "75.0%"},
		{Key: "Guiding", Value: "100.0%"},
		{Key: "Symbols", Value: "—"},
	}, v.Cadence)
}

func TestDerive_Idempotent(t *testing.T) {
	payloads := []string{
		`{}`,
		`{"scrolls_loaded": 5, "cadence": {"answers": 0}}`,
		`{"uptime_sec": 99, "scrolls_loaded": 3, "requests": {"a": 1, "b": 2}, "env": {"TEMPORAL_CONTEXT": true}, "ledger": {"count": 2}, "learning": [], "cadence": {"answers": 1, "symbols_pct": 98}}`,
	}

	for _, p := range payloads {
		s := mustParse(t, p)
		sg := &Safeguards{PrivacyFilter: "active"}
		assert.Equal(t, Derive(s, sg), Derive(s, sg), p)
	}
}

func TestPillFor(t *testing.T) {
	assert.Equal(t, Pill{OK: true, Label: "Healthy"}, PillFor(true, ""))
	assert.Equal(t, Pill{OK: false, Label: "Degraded"}, PillFor(false, ""))
	assert.Equal(t, Pill{OK: false, Label: "Failed"}, PillFor(false, LabelFailed))
}

func TestFailedView(t *testing.T) {
	prev := Derive(mustParse(t, `{"uptime_sec": 61, "scrolls_loaded": 5, "requests": {"ask": 1}}`), nil)
	v := FailedView(prev, "Failed to load /status. Is the server running?")

	assert.Equal(t, Pill{OK: false, Label: "Failed"}, v.Pill)
	assert.Empty(t, v.Modules)
	assert.True(t, v.Failing())
	assert.Equal(t, prev.Header, v.Header)
	assert.Equal(t, prev.Requests, v.Requests)

	// prev is left untouched
	assert.NotEmpty(t, prev.Modules)
	v.Flow[NodeGuard] = Failed
	assert.Equal(t, Healthy, prev.FlowState(NodeGuard))
}

func TestFailedView_FirstPaint(t *testing.T) {
	v := FailedView(ViewModel{}, "boom")
	assert.Equal(t, "Failed", v.Pill.Label)
	assert.Equal(t, "boom", v.Diagnostic)
	assert.Nil(t, v.Flow)
}
