// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Durations are carried as integer milliseconds so env vars stay simple.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// BackendURL is the base URL of the analysis service, without trailing slash.
	BackendURL string `koanf:"backend_url"`

	// RequestTimeoutMS bounds one POST /analyze round trip.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// HealthTimeoutMS bounds one GET /health probe.
	HealthTimeoutMS int `koanf:"health_timeout_ms"`

	// StartupProbe fires one health probe against the backend on start.
	StartupProbe bool `koanf:"startup_probe"`

	// SessionTTLMS controls how long an upstream session id is reused for a user.
	// Zero disables session reuse.
	SessionTTLMS int `koanf:"session_ttl_ms"`

	// MaxInFlight caps concurrent analyses across all users; 0 means no cap.
	MaxInFlight int `koanf:"max_inflight"`

	// MetricsEnabled turns Prometheus recording on; /metrics is served either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace prefixes every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsInstance, when set, is attached as an instance label to every metric.
	MetricsInstance string `koanf:"metrics_instance"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		BackendURL:       "http://localhost:8080",
		RequestTimeoutMS: 60_000,
		HealthTimeoutMS:  5_000,
		StartupProbe:     true,
		SessionTTLMS:     30 * 60_000,
		MaxInFlight:      64,
		MetricsEnabled:   true,
		MetricsNamespace: "coach",
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// HealthTimeout returns HealthTimeoutMS as a duration.
func (c *Config) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutMS) * time.Millisecond
}

// SessionTTL returns SessionTTLMS as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMS) * time.Millisecond
}
