// Package health turns a raw mirror status payload into a display-ready
// view-model.
//
// The package is pure: [Derive] performs no I/O, holds no state, and
// returns structurally identical output for identical input. Everything a
// renderer needs (header strings, key/value panels, the module grid, the
// pipeline flow states and the overall pill) is computed here so that
// renderers only have to paint.
//
// # Partial snapshots
//
// The remote service is treated as untrusted. Every field of [Snapshot] is
// optional and every consumer states its fallback through an accessor:
//
//	s.Scrolls()          // 0 when scrolls_loaded is absent
//	s.CadencePct("guiding") // 100 when the percentage is absent
//	s.Env.Text("LLM_MODEL") // "—" when the key is absent
//
// Numbers are decoded through [Number], which never fails: a malformed
// value degrades to "absent" rather than rejecting the whole payload.
//
// # Health states
//
// [State] is tri-state. Its zero value is [Degraded], so a missing health
// signal can never be mistaken for [Failed].
package health
