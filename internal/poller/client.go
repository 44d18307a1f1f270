package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/jpalmerr/mirrorboard/health"
)

const maxResponseBodySize = 1 << 20 // 1MB

// a single target is polled, so the pool stays small
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
)

// Default client settings.
const (
	DefaultStatusPath     = "/status"
	DefaultSafeguardsPath = "/safeguards/status"
	DefaultTimeout        = 10 * time.Second
)

var (
	// ErrCancelled is returned when a fetch is aborted through its context.
	// It is expected and never surfaced as a failure.
	ErrCancelled = errors.New("request cancelled")

	// ErrSafeguardsUnavailable marks a failed secondary safeguards fetch.
	// The session absorbs it and renders without safeguards.
	ErrSafeguardsUnavailable = errors.New("safeguards unavailable")
)

// RequestFailedError is returned for a non-2xx response.
type RequestFailedError struct {
	URL        string
	StatusCode int

	// Body is the (trimmed) response text, kept as diagnostic.
	Body string
}

func (e *RequestFailedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// ClientConfig configures a [Client].
type ClientConfig struct {
	// BaseURL is the monitored service root, e.g. "http://localhost:8000".
	BaseURL string

	// StatusPath defaults to [DefaultStatusPath].
	StatusPath string

	// SafeguardsPath defaults to [DefaultSafeguardsPath].
	SafeguardsPath string

	// Headers are sent with every request.
	Headers map[string]string

	// Timeout bounds each request. Defaults to [DefaultTimeout].
	Timeout time.Duration
}

// Client fetches status and safeguards payloads from the monitored service.
//
// Every request disables caching so each poll observes current server
// state. Timeouts are applied per request via context rather than on the
// http.Client, so cancellation and timeout share one path.
type Client struct {
	httpClient *http.Client
	cfg        ClientConfig
}

// NewClient creates a [Client] with a pooled, HTTP/2-capable transport.
func NewClient(cfg ClientConfig) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.StatusPath == "" {
		cfg.StatusPath = DefaultStatusPath
	}
	if cfg.SafeguardsPath == "" {
		cfg.SafeguardsPath = DefaultSafeguardsPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		MaxConnsPerHost:     defaultMaxConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
	// only fails when the transport was already configured for h2
	_ = http2.ConfigureTransport(transport)

	return &Client{
		// no default timeout - we use per-request timeouts via context
		httpClient: &http.Client{Transport: transport},
		cfg:        cfg,
	}
}

// StatusURL returns the full status endpoint URL.
func (c *Client) StatusURL() string {
	return c.cfg.BaseURL + c.cfg.StatusPath
}

// SafeguardsURL returns the full safeguards endpoint URL.
func (c *Client) SafeguardsURL() string {
	return c.cfg.BaseURL + c.cfg.SafeguardsPath
}

// FetchStatus fetches and decodes the status snapshot.
//
// It returns [ErrCancelled] when ctx is cancelled, a *[RequestFailedError]
// on a non-2xx response, and a wrapped error otherwise.
func (c *Client) FetchStatus(ctx context.Context) (health.Snapshot, error) {
	body, err := c.get(ctx, c.StatusURL())
	if err != nil {
		return health.Snapshot{}, err
	}
	s, err := health.ParseSnapshot(body)
	if err != nil {
		return health.Snapshot{}, fmt.Errorf("decode status: %w", err)
	}
	return s, nil
}

// FetchSafeguards fetches and decodes the safeguards payload. Errors follow
// [Client.FetchStatus].
func (c *Client) FetchSafeguards(ctx context.Context) (health.Safeguards, error) {
	body, err := c.get(ctx, c.SafeguardsURL())
	if err != nil {
		return health.Safeguards{}, err
	}
	sg, err := health.ParseSafeguards(body)
	if err != nil {
		return health.Safeguards{}, fmt.Errorf("decode safeguards: %w", err)
	}
	return sg, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// a timeout is a failure; only the caller's cancellation is silent
		if errors.Is(parent.Err(), context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		if errors.Is(parent.Err(), context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestFailedError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

// Close releases idle connections. The client remains usable.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
