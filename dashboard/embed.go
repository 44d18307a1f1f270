// Package dashboard provides the embedded web UI assets for mirrorboard.
//
// The page subscribes to /api/sse while it is visible and closes the stream
// when hidden; the server counts open streams as live viewers, which is what
// suspends and resumes the poll session.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
//	assets/
//	  index.html    - dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
