package config

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jpalmerr/mirrorboard"
	"github.com/jpalmerr/mirrorboard/internal/notify"
)

// BuildTarget converts the target section into an SDK Target.
func BuildTarget(cfg *Config) (mirrorboard.Target, error) {
	tc := cfg.Target
	opts := []mirrorboard.TargetOption{
		mirrorboard.WithStatusPath(tc.StatusPath),
		mirrorboard.WithSafeguardsPath(tc.SafeguardsPath),
		mirrorboard.WithTimeout(tc.Timeout.Duration()),
	}
	if len(tc.Headers) > 0 {
		opts = append(opts, mirrorboard.WithHeaders(mapToKeyValuePairs(tc.Headers)...))
	}
	return mirrorboard.NewTarget(tc.Name, tc.BaseURL, opts...)
}

// BuildOptions converts parsed configuration into SDK options.
//
// Notifiers are connected here. An HTTP notifier that cannot be created is
// an error; a Redis server that cannot be reached is logged and skipped,
// so a missing event sink never keeps the dashboard down.
func BuildOptions(ctx context.Context, cfg *Config, logger *slog.Logger) ([]mirrorboard.Option, error) {
	if logger == nil {
		logger = slog.Default()
	}

	target, err := BuildTarget(cfg)
	if err != nil {
		return nil, err
	}

	opts := []mirrorboard.Option{
		mirrorboard.WithTarget(target),
		mirrorboard.WithTitle(cfg.Title),
		mirrorboard.WithPort(cfg.Port),
		mirrorboard.WithPollingInterval(cfg.PollInterval.Duration()),
		mirrorboard.WithSuspendWhenIdle(cfg.SuspendWhenIdle),
		mirrorboard.WithLogger(logger),
	}

	if cfg.Alerts.Enabled {
		opts = append(opts, mirrorboard.WithAlerts(cfg.Alerts.Thresholds()))
	}

	notifiers, err := buildNotifiers(ctx, cfg.Notify, logger)
	if err != nil {
		return nil, err
	}
	for _, n := range notifiers {
		opts = append(opts, mirrorboard.WithNotifier(n))
	}

	return opts, nil
}

func buildNotifiers(ctx context.Context, nc NotifyConfig, logger *slog.Logger) ([]notify.Notifier, error) {
	var out []notify.Notifier

	if nc.HTTP.URL != "" {
		n, err := notify.NewHTTP(notify.HTTPConfig{URL: nc.HTTP.URL, APIKey: nc.HTTP.APIKey})
		if err != nil {
			return nil, fmt.Errorf("notify.http: %w", err)
		}
		out = append(out, n)
	}

	if nc.Redis.URL != "" {
		n, err := notify.NewRedis(ctx, notify.RedisConfig{URL: nc.Redis.URL, StreamPrefix: nc.Redis.StreamPrefix})
		if err != nil {
			logger.Warn("redis notifier disabled", "error", err)
		} else {
			out = append(out, n)
		}
	}

	return out, nil
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
