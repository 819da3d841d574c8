package config

import (
	"context"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides, e.g. COACH_BACKEND_URL.
const EnvPrefix = "COACH_"

// FileEnv names the variable holding an optional YAML config path.
const FileEnv = "COACH_CONFIG"

// metricNamespace is the Prometheus metric name charset, without colons.
var metricNamespace = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if COACH_CONFIG is set
//  3. env (prefix COACH_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, loadFailed(path, err)
		}
	}

	// COACH_REQUEST_TIMEOUT_MS -> request_timeout_ms. Keys are flat, so the
	// delimiter never appears in a transformed key.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ToLower(s)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, loadFailed("env", err)
	}
	// COACH_CONFIG itself is not a config key.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, loadFailed("unmarshal", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that the service cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return invalid("addr must not be empty")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("backend_url %q must be an absolute URL", c.BackendURL)
	}
	c.BackendURL = strings.TrimRight(c.BackendURL, "/")
	if c.RequestTimeoutMS <= 0 {
		return invalid("request_timeout_ms must be positive, got %d", c.RequestTimeoutMS)
	}
	if c.HealthTimeoutMS <= 0 {
		return invalid("health_timeout_ms must be positive, got %d", c.HealthTimeoutMS)
	}
	if c.SessionTTLMS < 0 {
		return invalid("session_ttl_ms must not be negative, got %d", c.SessionTTLMS)
	}
	if c.MaxInFlight < 0 {
		return invalid("max_inflight must not be negative, got %d", c.MaxInFlight)
	}
	if !metricNamespace.MatchString(c.MetricsNamespace) {
		return invalid("metrics_namespace %q must match %s", c.MetricsNamespace, metricNamespace)
	}
	return nil
}
