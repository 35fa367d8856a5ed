package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace overrides the "varkiosk" metric prefix.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem overrides the "game" subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the millisecond buckets shared by the HTTP,
// telemetry, leaderboard and writer latency histograms. Buckets that are not
// strictly increasing are ignored.
func WithLatencyBuckets(ms ...float64) Option {
	return func(m *Manager) {
		if increasing(ms) && ms[0] > 0 {
			m.latencyBuckets = ms
		}
	}
}

// WithAccuracyBuckets sets the buckets of the round accuracy histogram. Every
// bound must lie in (0, 100].
func WithAccuracyBuckets(percent ...float64) Option {
	return func(m *Manager) {
		if increasing(percent) && percent[0] > 0 && percent[len(percent)-1] <= 100 {
			m.accuracyBuckets = percent
		}
	}
}

// WithRegisterer registers the metrics somewhere other than the default
// registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

func increasing(b []float64) bool {
	if len(b) == 0 {
		return false
	}
	return sort.SliceIsSorted(b, func(i, j int) bool { return b[i] < b[j] }) && !hasDuplicates(b)
}

func hasDuplicates(b []float64) bool {
	for i := 1; i < len(b); i++ {
		if b[i] == b[i-1] {
			return true
		}
	}
	return false
}
