package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStreamPrefix prefixes Redis stream keys.
const DefaultStreamPrefix = "mirror:"

// RedisConfig configures a [RedisNotifier].
type RedisConfig struct {
	URL string

	// StreamPrefix defaults to [DefaultStreamPrefix].
	StreamPrefix string
}

// RedisNotifier appends events to Redis streams, one stream per event
// stream name. Each entry has a single "payload" field holding JSON.
type RedisNotifier struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = DefaultStreamPrefix
	}

	rdb := redis.NewClient(opts)

	// test connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisNotifier{rdb: rdb, prefix: cfg.StreamPrefix}, nil
}

// StreamKey returns the Redis key for an event stream.
func (n *RedisNotifier) StreamKey(stream string) string {
	return n.prefix + stream
}

// Notify implements [Notifier].
func (n *RedisNotifier) Notify(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = n.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: n.StreamKey(e.Stream),
		Values: map[string]any{"payload": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd failed: %w", err)
	}
	return nil
}

// Close implements [Notifier].
func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}
