package mirrorboard

import (
	"errors"
	"strings"
	"time"
)

// targetConfig holds mutable state during target construction.
type targetConfig struct {
	statusPath     string
	safeguardsPath string
	headers        map[string]string
	timeout        time.Duration
}

// TargetOption configures a [Target] during construction.
//
// Built-in options: [WithHeaders], [WithTimeout], [WithStatusPath],
// [WithSafeguardsPath].
type TargetOption func(*targetConfig) error

// WithHeaders adds HTTP headers sent with every status and safeguards
// request, typically for authentication.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	target, err := mirrorboard.NewTarget("mirror", url,
//	    mirrorboard.WithHeaders("Authorization", "Bearer token123"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) TargetOption {
	return func(cfg *targetConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout. A request that exceeds it
// fails the refresh and the dashboard shows the diagnostic. Defaults to
// 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) TargetOption {
	return func(cfg *targetConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithStatusPath overrides the status endpoint path (default "/status").
//
// Returns an error unless the path starts with "/".
func WithStatusPath(path string) TargetOption {
	return func(cfg *targetConfig) error {
		if !strings.HasPrefix(path, "/") {
			return errors.New("status path must start with /")
		}
		cfg.statusPath = path
		return nil
	}
}

// WithSafeguardsPath overrides the safeguards endpoint path (default
// "/safeguards/status"). The safeguards endpoint is only queried when a
// status payload carries no embedded safeguards.
//
// Returns an error unless the path starts with "/".
func WithSafeguardsPath(path string) TargetOption {
	return func(cfg *targetConfig) error {
		if !strings.HasPrefix(path, "/") {
			return errors.New("safeguards path must start with /")
		}
		cfg.safeguardsPath = path
		return nil
	}
}
