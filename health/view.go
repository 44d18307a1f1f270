package health

// Flow node identifiers in pipeline order.
const (
	NodeGuard     = "Guard"
	NodeGuide     = "Guide"
	NodeRetriever = "Retriever"
	NodeSynthesis = "Synthesis"
	NodeMemory    = "Memory"
	NodeResonance = "Resonance"
	NodeLucidity  = "Lucidity"
	NodeLedger    = "Ledger"
	NodeLearning  = "Learning"
)

// FlowNodes lists the pipeline flow nodes in display order.
var FlowNodes = []string{
	NodeGuard,
	NodeGuide,
	NodeRetriever,
	NodeSynthesis,
	NodeMemory,
	NodeResonance,
	NodeLucidity,
	NodeLedger,
	NodeLearning,
}

// Header holds the formatted header statistics.
type Header struct {
	Uptime  string `json:"uptime"`
	Scrolls string `json:"scrolls"`
	LLM     string `json:"llm"`
	Model   string `json:"model"`
}

// Field is one key/value row of a panel.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Module is one tile of the module grid.
type Module struct {
	Name        string `json:"name"`
	State       State  `json:"state"`
	Description string `json:"description"`
}

// Pill is the overall status pill.
type Pill struct {
	OK    bool   `json:"ok"`
	Label string `json:"label"`
}

// ViewModel is everything a renderer needs to paint the dashboard.
//
// A renderer must tolerate an empty ViewModel (first paint) and must be
// idempotent when handed the same ViewModel twice.
type ViewModel struct {
	Header     Header           `json:"header"`
	Requests   []Field          `json:"requests"`
	Safeguards []Field          `json:"safeguards"`
	Env        string           `json:"env"`
	Cadence    []Field          `json:"cadence"`
	Modules    []Module         `json:"modules"`
	Flow       map[string]State `json:"flow"`
	Pill       Pill             `json:"pill"`

	// Diagnostic replaces the module grid when the last refresh failed.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Module returns the module with the given name.
func (v ViewModel) Module(name string) (Module, bool) {
	for _, m := range v.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

// FlowState returns the state of a flow node. Unknown nodes are Degraded.
func (v ViewModel) FlowState(node string) State {
	return v.Flow[node]
}

// Failing reports whether the view is the diagnostic failure state.
func (v ViewModel) Failing() bool {
	return v.Diagnostic != ""
}
