package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds one event POST.
const DefaultHTTPTimeout = 3 * time.Second

// HTTPConfig configures an [HTTPNotifier].
type HTTPConfig struct {
	// URL is the event service root; events are posted to URL + "/events".
	URL    string
	APIKey string

	// Timeout defaults to [DefaultHTTPTimeout].
	Timeout time.Duration
}

// HTTPNotifier posts events as JSON to an HTTP event service.
type HTTPNotifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTP creates an [HTTPNotifier].
func NewHTTP(cfg HTTPConfig) (*HTTPNotifier, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, fmt.Errorf("notify: http url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	return &HTTPNotifier{
		endpoint: base + "/events",
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Notify implements [Notifier].
func (n *HTTPNotifier) Notify(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s event: %w", e.Stream, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s event: HTTP %d", e.Stream, resp.StatusCode)
	}
	return nil
}

// Close implements [Notifier].
func (n *HTTPNotifier) Close() error {
	n.client.CloseIdleConnections()
	return nil
}
