package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"sync"
	"testing"
	"time"
)

func statusServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestClient_FetchStatus(t *testing.T) {
	var mu sync.Mutex
	var gotPath, gotCache, gotPragma, gotAuth string
	server := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		gotCache = r.Header.Get("Cache-Control")
		gotPragma = r.Header.Get("Pragma")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"uptime_sec": 61, "scrolls_loaded": 4, "env": {"LLM_MODEL": "m"}}`))
	})

	client := NewClient(ClientConfig{
		BaseURL: server.URL + "/",
		Headers: map[string]string{"Authorization": "Bearer t0ken"},
	})
	defer client.Close()

	snap, err := client.FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}

	if snap.Scrolls() != 4 {
		t.Errorf("Scrolls() = %v, want 4", snap.Scrolls())
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/status" {
		t.Errorf("path = %q, want /status", gotPath)
	}
	if !strings.Contains(gotCache, "no-cache") || !strings.Contains(gotCache, "no-store") {
		t.Errorf("Cache-Control = %q, want no-cache and no-store", gotCache)
	}
	if gotPragma != "no-cache" {
		t.Errorf("Pragma = %q, want no-cache", gotPragma)
	}
	if gotAuth != "Bearer t0ken" {
		t.Errorf("Authorization = %q, want custom header", gotAuth)
	}
}

func TestClient_CustomPaths(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	server := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})

	client := NewClient(ClientConfig{
		BaseURL:        server.URL,
		StatusPath:     "/api/v2/status",
		SafeguardsPath: "/api/v2/safeguards",
	})

	if _, err := client.FetchStatus(context.Background()); err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	if _, err := client.FetchSafeguards(context.Background()); err != nil {
		t.Fatalf("FetchSafeguards() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"/api/v2/status", "/api/v2/safeguards"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	if client.StatusURL() != server.URL+"/api/v2/status" {
		t.Errorf("StatusURL() = %q", client.StatusURL())
	}
}

func TestClient_FetchSafeguards(t *testing.T) {
	server := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/safeguards/status" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"temporal": {"state": "closed"}, "privacy_filter": "active"}`))
	})

	client := NewClient(ClientConfig{BaseURL: server.URL})
	sg, err := client.FetchSafeguards(context.Background())
	if err != nil {
		t.Fatalf("FetchSafeguards() error = %v", err)
	}
	if sg.Temporal == nil || sg.Temporal.State != "closed" {
		t.Errorf("Temporal = %+v, want closed", sg.Temporal)
	}
	if sg.PrivacyFilter != "active" {
		t.Errorf("PrivacyFilter = %q, want active", sg.PrivacyFilter)
	}
}

func TestClient_RequestFailed(t *testing.T) {
	server := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	})

	client := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := client.FetchStatus(context.Background())

	var reqErr *RequestFailedError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %v, want *RequestFailedError", err)
	}
	if reqErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", reqErr.StatusCode)
	}
	if reqErr.Body != "index rebuilding" {
		t.Errorf("Body = %q, want server text", reqErr.Body)
	}
	if errors.Is(err, ErrCancelled) {
		t.Error("RequestFailed must be distinguishable from ErrCancelled")
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	server := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy error</html>`))
	})

	client := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := client.FetchStatus(context.Background())
	if err == nil {
		t.Fatal("expected decode error")
	}
	if errors.Is(err, ErrCancelled) {
		t.Errorf("decode error reported as cancellation: %v", err)
	}
}

func TestClient_Cancelled(t *testing.T) {
	release := make(chan struct{})
	server := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := NewClient(ClientConfig{BaseURL: server.URL, Timeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := client.FetchStatus(ctx)
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("error = %v, want ErrCancelled", err)
	}
}

func TestClient_TimeoutIsNotCancellation(t *testing.T) {
	release := make(chan struct{})
	server := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := NewClient(ClientConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond})

	_, err := client.FetchStatus(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if errors.Is(err, ErrCancelled) {
		t.Errorf("timeout reported as cancellation: %v", err)
	}
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(ClientConfig{BaseURL: url, Timeout: time.Second})
	_, err := client.FetchStatus(context.Background())
	if err == nil {
		t.Fatal("expected network error")
	}
	var reqErr *RequestFailedError
	if errors.As(err, &reqErr) {
		t.Errorf("network error should not carry a status code: %v", err)
	}
}

// TestClient_ConnectionReuse verifies that sequential polls reuse the
// pooled connection.
func TestClient_ConnectionReuse(t *testing.T) {
	server := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scrolls_loaded": 1}`))
	})

	client := NewClient(ClientConfig{BaseURL: server.URL})

	var reusedCount int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount++
			}
		},
	}

	const numRequests = 5

	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		if _, err := client.FetchStatus(ctx); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}

	expectedMinReuse := numRequests - 2 // allow some tolerance
	if reusedCount < expectedMinReuse {
		t.Errorf("expected at least %d reused connections, got %d out of %d requests",
			expectedMinReuse, reusedCount, numRequests)
	}
}

// TestClient_Close verifies that Close is idempotent and the client stays
// usable afterwards.
func TestClient_Close(t *testing.T) {
	server := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	client := NewClient(ClientConfig{BaseURL: server.URL})
	client.Close()
	client.Close()

	if _, err := client.FetchStatus(context.Background()); err != nil {
		t.Errorf("request after Close failed: %v", err)
	}

	var nilClient *Client
	nilClient.Close()
}
