// Package config provides YAML configuration parsing for mirrorboard.
//
// This package enables running mirrorboard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Mirror V4
//	poll_interval: 6s
//
//	target:
//	  name: mirror
//	  base_url: ${MIRROR_URL:-http://localhost:8000}
//	  headers:
//	    Authorization: Bearer ${MIRROR_TOKEN}
//
//	alerts:
//	  enabled: true
//	  cooldown: 5m
//
//	notify:
//	  redis:
//	    url: redis://localhost:6379/0
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/mirrorboard/internal/alert"
	"github.com/jpalmerr/mirrorboard/internal/notify"
	"github.com/jpalmerr/mirrorboard/internal/poller"
)

// minPollInterval keeps a misconfigured board from hammering the service.
const minPollInterval = 1 * time.Second

// Defaults applied by [Parse].
const (
	DefaultTitle    = "Mirrorboard"
	DefaultPort     = 8080
	DefaultTarget   = "mirror"
	DefaultLogLevel = "info"
	LogFormatText   = "text"
	LogFormatJSON   = "json"
)

// Config is the root configuration structure for mirrorboard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Mirrorboard".
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the time between refreshes. Defaults to 6s.
	PollInterval Duration `yaml:"poll_interval"`

	// SuspendWhenIdle stops polling while no dashboard viewer is
	// connected. Defaults to true.
	SuspendWhenIdle bool `yaml:"suspend_when_idle"`

	Target TargetConfig `yaml:"target"`
	Log    LogConfig    `yaml:"log"`
	Alerts AlertsConfig `yaml:"alerts"`
	Notify NotifyConfig `yaml:"notify"`
}

// TargetConfig defines the monitored service.
type TargetConfig struct {
	// Name is used in logs. Defaults to "mirror".
	Name string `yaml:"name"`

	// BaseURL is the service root. Required.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// StatusPath defaults to /status.
	StatusPath string `yaml:"status_path"`

	// SafeguardsPath defaults to /safeguards/status.
	SafeguardsPath string `yaml:"safeguards_path"`

	// Timeout is the per-request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Headers are sent with every request. Values support environment
	// variable substitution.
	Headers map[string]string `yaml:"headers"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`

	// Format is text or json. Defaults to text.
	Format string `yaml:"format"`
}

// AlertsConfig configures cadence and scroll alerts.
type AlertsConfig struct {
	Enabled    bool                `yaml:"enabled"`
	Warn       alert.CadenceLimits `yaml:"warn"`
	Bad        alert.CadenceLimits `yaml:"bad"`
	MinScrolls float64             `yaml:"min_scrolls"`
	Cooldown   Duration            `yaml:"cooldown"`
}

// Thresholds converts the section to alert thresholds.
func (a AlertsConfig) Thresholds() alert.Thresholds {
	return alert.Thresholds{
		Warn:       a.Warn,
		Bad:        a.Bad,
		MinScrolls: a.MinScrolls,
		Cooldown:   a.Cooldown.Duration(),
	}
}

// NotifyConfig configures external event sinks. A sink with an empty URL
// is disabled.
type NotifyConfig struct {
	HTTP  HTTPNotifyConfig  `yaml:"http"`
	Redis RedisNotifyConfig `yaml:"redis"`
}

// HTTPNotifyConfig configures the HTTP event sink.
type HTTPNotifyConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// RedisNotifyConfig configures the Redis stream event sink.
type RedisNotifyConfig struct {
	URL          string `yaml:"url"`
	StreamPrefix string `yaml:"stream_prefix"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
// Group 1 is the name, group 2 the ":-default" part, group 3 the default.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values. An unset variable without a default is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		m := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, def := m[1], m[2] != "", m[3]

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return def
		}
		firstErr = fmt.Errorf("environment variable %q is not set", name)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded after parsing.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Default returns a configuration with every default applied and no
// target URL.
func Default() Config {
	th := alert.DefaultThresholds()
	return Config{
		Title:           DefaultTitle,
		Port:            DefaultPort,
		PollInterval:    Duration(poller.DefaultInterval),
		SuspendWhenIdle: true,
		Target: TargetConfig{
			Name:           DefaultTarget,
			StatusPath:     poller.DefaultStatusPath,
			SafeguardsPath: poller.DefaultSafeguardsPath,
			Timeout:        Duration(poller.DefaultTimeout),
		},
		Log: LogConfig{Level: DefaultLogLevel, Format: LogFormatText},
		Alerts: AlertsConfig{
			Warn:       th.Warn,
			Bad:        th.Bad,
			MinScrolls: th.MinScrolls,
			Cooldown:   Duration(th.Cooldown),
		},
		Notify: NotifyConfig{
			Redis: RedisNotifyConfig{StreamPrefix: notify.DefaultStreamPrefix},
		},
	}
}

// Parse parses YAML configuration data.
//
// Keys absent from the document keep their [Default] values. Environment
// variables are expanded in the target URL, header values and notifier
// settings.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if err := c.Target.expandAndValidate(); err != nil {
		return err
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	if c.Alerts.Enabled {
		if err := c.Alerts.Thresholds().Validate(); err != nil {
			return fmt.Errorf("alerts: %w", err)
		}
	}
	return c.Notify.expandAndValidate()
}

func (t *TargetConfig) expandAndValidate() error {
	if t.Name == "" {
		t.Name = DefaultTarget
	}

	if t.BaseURL == "" {
		return fmt.Errorf("target (%s): base_url is required", t.Name)
	}
	expanded, err := expandEnvVars(t.BaseURL)
	if err != nil {
		return fmt.Errorf("target (%s): base_url: %w", t.Name, err)
	}
	t.BaseURL = expanded
	if err := validateHTTPURL(t.BaseURL); err != nil {
		return fmt.Errorf("target (%s): base_url: %w", t.Name, err)
	}

	for field, path := range map[string]string{"status_path": t.StatusPath, "safeguards_path": t.SafeguardsPath} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("target (%s): %s must start with /, got %q", t.Name, field, path)
		}
	}

	if t.Timeout.Duration() < time.Second {
		return fmt.Errorf("target (%s): timeout must be at least 1s, got %s", t.Name, t.Timeout.Duration())
	}

	for k, v := range t.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("target (%s): headers[%s]: %w", t.Name, k, err)
		}
		t.Headers[k] = expanded
	}
	return nil
}

func (l *LogConfig) validate() error {
	l.Level = strings.ToLower(l.Level)
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
	}

	l.Format = strings.ToLower(l.Format)
	if l.Format != LogFormatText && l.Format != LogFormatJSON {
		return fmt.Errorf("log.format must be text or json, got %q", l.Format)
	}
	return nil
}

func (n *NotifyConfig) expandAndValidate() error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"notify.http.url", &n.HTTP.URL},
		{"notify.http.api_key", &n.HTTP.APIKey},
		{"notify.redis.url", &n.Redis.URL},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.ptr)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = expanded
	}

	if n.HTTP.URL != "" {
		if err := validateHTTPURL(n.HTTP.URL); err != nil {
			return fmt.Errorf("notify.http.url: %w", err)
		}
	}
	if n.Redis.URL != "" {
		if !strings.HasPrefix(n.Redis.URL, "redis://") && !strings.HasPrefix(n.Redis.URL, "rediss://") {
			return errors.New("notify.redis.url must start with redis:// or rediss://")
		}
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url must have a host")
	}
	return nil
}
