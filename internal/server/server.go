package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/mirrorboard/internal/poller"
	"github.com/jpalmerr/mirrorboard/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Mirrorboard"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Control is the slice of the poll session the API drives.
// *poller.Session implements it.
type Control interface {
	Trigger() bool
	State() poller.State
	InFlight() bool
}

// SessionInfo is the body of GET /api/session.
type SessionInfo struct {
	State    string `json:"state"`
	InFlight bool   `json:"in_flight"`
}

// Config configures a [Server].
type Config struct {
	Store   store.Store
	Control Control
	Port    int

	// Assets holds assets/index.html. Nil disables the dashboard route.
	Assets fs.FS

	// Title defaults to "Mirrorboard".
	Title string

	Logger *slog.Logger

	// OnViewers is called with the new live-viewer count whenever an SSE
	// viewer connects or disconnects. Calls are serialized.
	OnViewers func(count int)
}

// Server handles HTTP requests for the dashboard and API.
//
// Routes:
//   - GET /: embedded dashboard HTML
//   - GET /api/view: latest frame as JSON (204 before the first render)
//   - GET /api/history: retained frames
//   - GET /api/alerts: retained alerts
//   - GET /api/session: poll session state
//   - POST /api/refresh: trigger a refresh (409 while one is in flight)
//   - GET /api/sse: Server-Sent Events frame stream
//   - GET /metrics: Prometheus metrics
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	cfg        Config
	httpServer *http.Server
	logger     *slog.Logger

	viewersMu sync.Mutex
	viewers   int

	addrMu sync.Mutex
	addr   net.Addr
}

// NewServer creates a new HTTP [Server]. The server is not started until
// [Server.Start] is called.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.cfg.Assets != nil {
		mux.HandleFunc("GET /", s.handleDashboard)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}

	s.addrMu.Lock()
	s.addr = ln.Addr()
	s.addrMu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started, or nil.
func (s *Server) Addr() net.Addr {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	return s.addr
}

// Viewers returns the number of connected SSE viewers.
func (s *Server) Viewers() int {
	s.viewersMu.Lock()
	defer s.viewersMu.Unlock()
	return s.viewers
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.cfg.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.cfg.Store.Latest()
	if !ok {
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, frame)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Store.History())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Store.Alerts())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Control == nil {
		http.Error(w, "no poll session", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionInfo{
		State:    s.cfg.Control.State().String(),
		InFlight: s.cfg.Control.InFlight(),
	})
}

// handleRefresh triggers an out-of-band refresh. Like a timer tick, it is
// dropped when an attempt is already outstanding.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Control == nil {
		http.Error(w, "no poll session", http.StatusServiceUnavailable)
		return
	}
	if !s.cfg.Control.Trigger() {
		s.writeJSON(w, http.StatusConflict, map[string]string{"error": "refresh already in flight"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// viewerJoined and viewerLeft keep the count and notify under one lock, so
// OnViewers observes transitions in order.
func (s *Server) viewerJoined() {
	s.viewersMu.Lock()
	defer s.viewersMu.Unlock()
	s.viewers++
	if s.cfg.OnViewers != nil {
		s.cfg.OnViewers(s.viewers)
	}
}

func (s *Server) viewerLeft() {
	s.viewersMu.Lock()
	defer s.viewersMu.Unlock()
	s.viewers--
	if s.cfg.OnViewers != nil {
		s.cfg.OnViewers(s.viewers)
	}
}

// handleSSE streams frames via Server-Sent Events. Each connection counts
// as one live viewer for as long as it stays open.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(frame store.Frame) error {
		data, err := json.Marshal(frame)
		if err != nil {
			return nil
		}
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", frame.Seq, data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.cfg.Store.Subscribe()
	defer s.cfg.Store.Unsubscribe(ch)

	s.viewerJoined()
	defer s.viewerLeft()

	// first paint from the latest frame, if any
	if frame, ok := s.cfg.Store.Latest(); ok {
		if err := writeAndFlush(frame); err != nil {
			return
		}
	} else if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if err := writeAndFlush(frame); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
