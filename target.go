package mirrorboard

import (
	"errors"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/jpalmerr/mirrorboard/internal/poller"
)

// Target is the monitored service: a base URL plus the paths of its
// status and safeguards endpoints.
//
// Target is immutable after creation via [NewTarget]. Getters return
// copies of mutable data.
type Target struct {
	name           string
	baseURL        string
	statusPath     string
	safeguardsPath string
	headers        map[string]string
	timeout        time.Duration
}

// Name returns the target's display name, used in logs.
func (t Target) Name() string {
	return t.name
}

// BaseURL returns the service root without a trailing slash.
func (t Target) BaseURL() string {
	return t.baseURL
}

// StatusPath returns the path of the status endpoint. Defaults to "/status".
func (t Target) StatusPath() string {
	return t.statusPath
}

// SafeguardsPath returns the path of the secondary safeguards endpoint.
// Defaults to "/safeguards/status".
func (t Target) SafeguardsPath() string {
	return t.safeguardsPath
}

// StatusURL returns the full status endpoint URL.
func (t Target) StatusURL() string {
	return t.baseURL + t.statusPath
}

// Headers returns a copy of the headers sent with every request.
// Returns nil if none are set.
func (t Target) Headers() map[string]string {
	if len(t.headers) == 0 {
		return nil
	}
	return maps.Clone(t.headers)
}

// Timeout returns the per-request timeout. Defaults to 10 seconds.
func (t Target) Timeout() time.Duration {
	return t.timeout
}

// NewTarget creates a [Target] with the given name, base URL and options.
//
// The baseURL must carry an http or https scheme and a host, e.g.
// "http://localhost:8000". A trailing slash is removed.
//
// Example:
//
//	target, err := mirrorboard.NewTarget("mirror", "http://localhost:8000",
//	    mirrorboard.WithHeaders("Authorization", "Bearer "+token),
//	    mirrorboard.WithTimeout(5*time.Second),
//	)
func NewTarget(name, baseURL string, opts ...TargetOption) (Target, error) {
	if name == "" {
		return Target{}, errors.New("target name cannot be empty")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return Target{}, errors.New("invalid base URL: " + err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Target{}, errors.New("base URL must have an http:// or https:// scheme")
	}
	if parsed.Host == "" {
		return Target{}, errors.New("base URL must have a host")
	}

	cfg := &targetConfig{
		statusPath:     poller.DefaultStatusPath,
		safeguardsPath: poller.DefaultSafeguardsPath,
		headers:        make(map[string]string),
		timeout:        poller.DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Target{}, err
		}
	}

	return Target{
		name:           name,
		baseURL:        strings.TrimRight(baseURL, "/"),
		statusPath:     cfg.statusPath,
		safeguardsPath: cfg.safeguardsPath,
		headers:        cfg.headers,
		timeout:        cfg.timeout,
	}, nil
}

func (t Target) clientConfig() poller.ClientConfig {
	return poller.ClientConfig{
		BaseURL:        t.baseURL,
		StatusPath:     t.statusPath,
		SafeguardsPath: t.safeguardsPath,
		Headers:        t.Headers(),
		Timeout:        t.timeout,
	}
}
