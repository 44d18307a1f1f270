package health

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	labelHealthy  = "Healthy"
	labelDegraded = "Degraded"

	// LabelFailed is the pill label used when a refresh fails.
	LabelFailed = "Failed"

	// cadenceFloor is the minimum pass percentage for a healthy pill.
	cadenceFloor = 99
)

// moduleSpec describes one module grid tile. The predicate is evaluated
// against the snapshot; flag, when set, names the env flag that must be
// truthy for the module to appear at all.
type moduleSpec struct {
	name    string
	flag    string
	healthy func(Snapshot) bool
	desc    func(Snapshot) string
}

func always(Snapshot) bool { return true }

func text(s string) func(Snapshot) string {
	return func(Snapshot) string { return s }
}

// moduleSpecs is the module grid in display order: the base set, then the
// env-flagged modules.
var moduleSpecs = []moduleSpec{
	{name: "Guard", healthy: always, desc: text("Circuit breakers & privacy filters")},
	{name: "Guide", healthy: always, desc: text("Intent, hint, and curiosity prompt")},
	{
		name:    "Retriever",
		healthy: func(s Snapshot) bool { return s.Scrolls() > 0 },
		desc:    text("Indexed scrolls and notes"),
	},
	{name: "Synthesis", healthy: always, desc: text("Weaving draft from top-K evidence")},
	{name: "Memory", healthy: always, desc: text("Identity-aware profile + notes")},
	{
		name:    "Resonance",
		healthy: always,
		desc: func(s Snapshot) string {
			return "Harmony threshold = " + s.Env.Text("HARMONY_THRESHOLD")
		},
	},
	{name: "Lucidity", healthy: always, desc: text("Meta clarity & cadence shaping")},
	{
		name:    "Ledger",
		healthy: Snapshot.LedgerPresent,
		desc: func(s Snapshot) string {
			return "entries: " + formatFloat(s.LedgerCount())
		},
	},
	// a learning payload that is not a sequence falls back to healthy
	{name: "Learning", healthy: always, desc: text("Self-refine queue")},
	{name: "Temporal Context", flag: "TEMPORAL_CONTEXT", healthy: always, desc: text("Epoch/Rune enrichment")},
	{name: "Symbol Resonance", flag: "SYMBOL_RESONANCE", healthy: always, desc: text("Symbol frequency & motifs")},
	{name: "Conversation Weaver", flag: "CONVERSATION_WEAVE", healthy: always, desc: text("Thread continuity")},
}

// FormatUptime formats seconds as "{h}h {m}m {s}s". Fractions are floored;
// negative and NaN input clamp to zero.
func FormatUptime(sec float64) string {
	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	total := int64(math.Floor(sec))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// PillFor builds the overall pill. An empty override yields "Healthy" or
// "Degraded" depending on ok.
func PillFor(ok bool, override string) Pill {
	label := override
	if label == "" {
		if ok {
			label = labelHealthy
		} else {
			label = labelDegraded
		}
	}
	return Pill{OK: ok, Label: label}
}

// Derive computes the view-model for a snapshot. sg is the safeguard
// status to display (embedded or fetched separately); nil means none.
func Derive(s Snapshot, sg *Safeguards) ViewModel {
	return ViewModel{
		Header:     deriveHeader(s),
		Requests:   deriveRequests(s),
		Safeguards: deriveSafeguards(sg),
		Env:        deriveEnvLine(s.Env),
		Cadence:    deriveCadence(s),
		Modules:    deriveModules(s),
		Flow:       deriveFlow(s),
		Pill:       PillFor(pillOK(s), ""),
	}
}

// FailedView returns the diagnostic failure view. Header, panels and flow are
// carried over from prev; the module grid is replaced by diagnostic.
func FailedView(prev ViewModel, diagnostic string) ViewModel {
	out := prev
	out.Requests = append([]Field(nil), prev.Requests...)
	out.Safeguards = append([]Field(nil), prev.Safeguards...)
	out.Cadence = append([]Field(nil), prev.Cadence...)
	if prev.Flow != nil {
		out.Flow = make(map[string]State, len(prev.Flow))
		for k, v := range prev.Flow {
			out.Flow[k] = v
		}
	}
	out.Modules = nil
	out.Diagnostic = diagnostic
	out.Pill = PillFor(false, LabelFailed)
	return out
}

func deriveHeader(s Snapshot) Header {
	llm := "OFF"
	if s.Env.Truthy("LLM_BASE_URL") {
		llm = "ON"
	}

	model := Placeholder
	if s.Env.Truthy("LLM_MODEL") {
		model = s.Env.Text("LLM_MODEL")
	}

	return Header{
		Uptime:  FormatUptime(s.Uptime()),
		Scrolls: s.ScrollsLoaded.String(),
		LLM:     llm,
		Model:   model,
	}
}

func deriveRequests(s Snapshot) []Field {
	keys := make([]string, 0, len(s.Requests))
	for k := range s.Requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: s.Requests[k].String()})
	}
	return fields
}

func deriveSafeguards(sg *Safeguards) []Field {
	breakers := Placeholder
	if states := sg.BreakerStates(); len(states) > 0 {
		breakers = strings.Join(states, "/")
	}

	fields := []Field{{Key: "Circuit Breakers", Value: breakers}}
	if sg == nil {
		return fields
	}
	if sg.PrivacyFilter != "" {
		fields = append(fields, Field{Key: "Privacy Filter", Value: sg.PrivacyFilter})
	}
	if sg.ConfidenceValidator != "" {
		fields = append(fields, Field{Key: "Confidence Validator", Value: sg.ConfidenceValidator})
	}
	return fields
}

func deriveEnvLine(e Env) string {
	return fmt.Sprintf("SCROLLS_DIR=%s · MODEL=%s · TEMPORAL=%s · SYMBOLS=%s · CONV=%s",
		e.Text("SCROLLS_DIR"),
		e.Text("LLM_MODEL"),
		e.Text("TEMPORAL_CONTEXT"),
		e.Text("SYMBOL_RESONANCE"),
		e.Text("CONVERSATION_WEAVE"),
	)
}

func deriveCadence(s Snapshot) []Field {
	pct := func(n Number) string {
		if !n.Valid {
			return Placeholder
		}
		return fmt.Sprintf("%.1f%%", n.Value)
	}

	var c Cadence
	if s.Cadence != nil {
		c = *s.Cadence
	}
	return []Field{
		{Key: "Answers", Value: c.Answers.String()},
		{Key: "Traveler", Value: pct(c.TravelerPct)},
		{Key: "Guiding", Value: pct(c.GuidingPct)},
		{Key: "Symbols", Value: pct(c.SymbolsPct)},
	}
}

func deriveModules(s Snapshot) []Module {
	modules := make([]Module, 0, len(moduleSpecs))
	for _, spec := range moduleSpecs {
		if spec.flag != "" && !s.Env.Truthy(spec.flag) {
			continue
		}
		modules = append(modules, Module{
			Name:        spec.name,
			State:       stateOf(spec.healthy(s)),
			Description: spec.desc(s),
		})
	}
	return modules
}

// deriveFlow is deliberately independent of deriveModules: the flow
// diagram shows a missing ledger as Degraded, the grid as Failed.
func deriveFlow(s Snapshot) map[string]State {
	flow := make(map[string]State, len(FlowNodes))
	for _, node := range FlowNodes {
		flow[node] = Healthy
	}

	if s.Scrolls() <= 0 {
		flow[NodeRetriever] = Failed
	}
	if !s.LedgerPresent() {
		flow[NodeLedger] = Degraded
	}
	return flow
}

func pillOK(s Snapshot) bool {
	ok := s.Scrolls() > 0

	if s.CadenceAnswers() > 0 {
		for _, name := range []string{"traveler", "guiding", "symbols"} {
			if s.CadencePct(name) < cadenceFloor {
				ok = false
			}
		}
	}
	return ok
}
