package health

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Placeholder is displayed wherever a value is absent.
const Placeholder = "—"

// Number is a JSON number that tolerates malformed input.
//
// Numbers, numeric strings and booleans decode to a valid value; null and
// anything else decode to an invalid (absent) value. UnmarshalJSON never
// returns an error.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid [Number] holding v.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Or returns the value, or fallback when the number is absent.
func (n Number) Or(fallback float64) float64 {
	if !n.Valid {
		return fallback
	}
	return n.Value
}

// Truthy reports whether the number is present and non-zero.
func (n Number) Truthy() bool {
	return n.Valid && n.Value != 0
}

// String formats the number without trailing zeros, or [Placeholder].
func (n Number) String() string {
	if !n.Valid {
		return Placeholder
	}
	return formatFloat(n.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	switch v := raw.(type) {
	case float64:
		*n = Num(v)
	case bool:
		if v {
			*n = Num(1)
		} else {
			*n = Num(0)
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*n = Num(f)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Absent numbers encode as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// Env is the service's reported environment. Values are strings, booleans
// or numbers.
type Env map[string]any

// Truthy reports whether key is present with a truthy value: true, a
// non-empty string, a non-zero number, or any object/array.
func (e Env) Truthy(key string) bool {
	v, ok := e[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

// Lookup returns the display form of key and whether it is present.
// A JSON null counts as absent.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e[key]
	if !ok || v == nil {
		return "", false
	}
	return formatAny(v), true
}

// Text returns the display form of key, or [Placeholder] when absent.
func (e Env) Text(key string) string {
	if s, ok := e.Lookup(key); ok {
		return s
	}
	return Placeholder
}

// Ledger is the ledger summary. Older services report "entries", newer
// ones "count".
type Ledger struct {
	Count   Number `json:"count"`
	Entries Number `json:"entries"`
}

// Cadence holds answer cadence counters and pass percentages.
type Cadence struct {
	Answers     Number `json:"answers"`
	TravelerPct Number `json:"traveler_pct"`
	GuidingPct  Number `json:"guiding_pct"`
	SymbolsPct  Number `json:"symbols_pct"`
}

// Breaker is one circuit breaker's status.
//
// It decodes from the service's object form ({"state": "closed", ...}) or
// from a bare state string.
type Breaker struct {
	Name     string `json:"name,omitempty"`
	State    string `json:"state,omitempty"`
	Failures Number `json:"failures"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Breaker) UnmarshalJSON(data []byte) error {
	*b = Breaker{}

	var state string
	if err := json.Unmarshal(data, &state); err == nil {
		b.State = state
		return nil
	}

	var raw struct {
		Name     any    `json:"name"`
		State    any    `json:"state"`
		Failures Number `json:"failures"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if s, ok := raw.State.(string); ok {
		b.State = s
	}
	if s, ok := raw.Name.(string); ok {
		b.Name = s
	}
	b.Failures = raw.Failures
	return nil
}

// Safeguards is the safeguard status, embedded in the snapshot or served
// by the secondary safeguards endpoint.
type Safeguards struct {
	Temporal            *Breaker `json:"temporal,omitempty"`
	Symbol              *Breaker `json:"symbol,omitempty"`
	Conversation        *Breaker `json:"conversation,omitempty"`
	PrivacyFilter       string   `json:"privacy_filter,omitempty"`
	ConfidenceValidator string   `json:"confidence_validator,omitempty"`
}

// BreakerStates returns the non-empty breaker states in
// temporal/symbol/conversation order.
func (sg *Safeguards) BreakerStates() []string {
	if sg == nil {
		return nil
	}
	var states []string
	for _, b := range []*Breaker{sg.Temporal, sg.Symbol, sg.Conversation} {
		if b != nil && b.State != "" {
			states = append(states, b.State)
		}
	}
	return states
}

// Snapshot is one status payload from the monitored service.
//
// All fields are optional; use the accessor methods for fallbacks.
type Snapshot struct {
	UptimeSec     Number            `json:"uptime_sec"`
	ScrollsLoaded Number            `json:"scrolls_loaded"`
	Requests      map[string]Number `json:"requests,omitempty"`
	Env           Env               `json:"env,omitempty"`
	Ledger        *Ledger           `json:"ledger,omitempty"`
	Learning      json.RawMessage   `json:"learning,omitempty"`
	Cadence       *Cadence          `json:"cadence,omitempty"`
	Safeguards    *Safeguards       `json:"safeguards,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. Only a payload that is not a
// JSON object is an error; a field of the wrong type decodes as absent.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*s = Snapshot{
		Ledger:     lenient[Ledger](fields, "ledger"),
		Cadence:    lenient[Cadence](fields, "cadence"),
		Safeguards: lenient[Safeguards](fields, "safeguards"),
	}
	if n := lenient[Number](fields, "uptime_sec"); n != nil {
		s.UptimeSec = *n
	}
	if n := lenient[Number](fields, "scrolls_loaded"); n != nil {
		s.ScrollsLoaded = *n
	}
	if r := lenient[map[string]Number](fields, "requests"); r != nil {
		s.Requests = *r
	}
	if e := lenient[Env](fields, "env"); e != nil {
		s.Env = *e
	}
	if raw, ok := fields["learning"]; ok && !isNull(raw) {
		s.Learning = append(json.RawMessage(nil), raw...)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. A field of the wrong type
// decodes as absent.
func (sg *Safeguards) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*sg = Safeguards{
		Temporal:     lenient[Breaker](fields, "temporal"),
		Symbol:       lenient[Breaker](fields, "symbol"),
		Conversation: lenient[Breaker](fields, "conversation"),
	}
	if v := lenient[string](fields, "privacy_filter"); v != nil {
		sg.PrivacyFilter = *v
	}
	if v := lenient[string](fields, "confidence_validator"); v != nil {
		sg.ConfidenceValidator = *v
	}
	return nil
}

// lenient decodes fields[key] into a new T. It returns nil when the key is
// missing, null, or holds a value of another type.
func lenient[T any](fields map[string]json.RawMessage, key string) *T {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// ParseSnapshot decodes a status payload.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// ParseSafeguards decodes a safeguards payload.
func ParseSafeguards(data []byte) (Safeguards, error) {
	var sg Safeguards
	if err := json.Unmarshal(data, &sg); err != nil {
		return Safeguards{}, err
	}
	return sg, nil
}

// Uptime returns uptime in seconds; 0 when absent.
func (s Snapshot) Uptime() float64 {
	return s.UptimeSec.Or(0)
}

// Scrolls returns the loaded scroll count; 0 when absent.
func (s Snapshot) Scrolls() float64 {
	return s.ScrollsLoaded.Or(0)
}

// LedgerPresent reports whether the ledger count (or entries) is non-zero.
func (s Snapshot) LedgerPresent() bool {
	if s.Ledger == nil {
		return false
	}
	return s.Ledger.Count.Truthy() || s.Ledger.Entries.Truthy()
}

// LedgerCount returns count, falling back to entries, then 0.
func (s Snapshot) LedgerCount() float64 {
	if s.Ledger == nil {
		return 0
	}
	if s.Ledger.Count.Valid {
		return s.Ledger.Count.Value
	}
	return s.Ledger.Entries.Or(0)
}

// LearningIsSequence reports whether the learning field is a JSON array.
func (s Snapshot) LearningIsSequence() bool {
	trimmed := bytes.TrimSpace(s.Learning)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// CadenceAnswers returns the number of answers counted; 0 when absent.
func (s Snapshot) CadenceAnswers() float64 {
	if s.Cadence == nil {
		return 0
	}
	return s.Cadence.Answers.Or(0)
}

// CadencePct returns the named pass percentage ("traveler", "guiding" or
// "symbols"); 100 when absent.
func (s Snapshot) CadencePct(name string) float64 {
	if s.Cadence == nil {
		return 100
	}
	switch name {
	case "traveler":
		return s.Cadence.TravelerPct.Or(100)
	case "guiding":
		return s.Cadence.GuidingPct.Or(100)
	case "symbols":
		return s.Cadence.SymbolsPct.Or(100)
	default:
		return 100
	}
}

// RequestCount returns the counter for one request kind; 0 when absent.
func (s Snapshot) RequestCount(kind string) float64 {
	return s.Requests[kind].Or(0)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatAny(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatFloat(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Placeholder
		}
		return string(b)
	}
}
