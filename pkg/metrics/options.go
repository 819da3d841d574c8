package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// instanceLabel is the const label set by WithInstance.
const instanceLabel = "instance"

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace prefixes every collector name, e.g. "coach" gives
// coach_web_submissions_total. Empty keeps the default.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithInstance tags every collector with instance=<name> so several front
// ends scraped into one Prometheus stay apart. Empty adds no label.
func WithInstance(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.constLabels[instanceLabel] = name
		}
	}
}

// WithEnabled turns recording on or off from the start.
func WithEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled.Store(enabled)
	}
}

// WithPrometheusRegistry registers the collectors on registry instead of
// the default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
