// Package server provides the HTTP server for the mirrorboard dashboard and
// API.
//
//   - Dashboard serving: the embedded HTML/CSS/JS dashboard at "/"
//   - REST API: latest frame, history, alerts, session state and manual
//     refresh under "/api/"
//   - Server-Sent Events: frame stream at "/api/sse"; open streams are the
//     live viewers that keep the poll session active
//   - Prometheus metrics at "/metrics"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
