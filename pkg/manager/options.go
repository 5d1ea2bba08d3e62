package manager

import (
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/signals"
)

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithScope ties the manager's lifetime to scope: per-cell change
// effects attach to it, and disposing the scope closes the manager.
func WithScope(scope *signals.Scope) Option {
	return func(m *Manager) {
		m.scope = scope
	}
}

// WithStrictKeys makes access to keys absent from the default state
// fail with ErrUnknownKey instead of silently materializing a
// zero-value cell.
func WithStrictKeys() Option {
	return func(m *Manager) {
		m.strict = true
	}
}

// WithLogger sets the structured logger used for snapshot and restore
// warnings. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTransientKeys marks keys whose cells are excluded from
// Snapshot, for ephemeral state that must not survive a restart.
func WithTransientKeys(keys ...string) Option {
	return func(m *Manager) {
		if m.transientKeys == nil {
			m.transientKeys = make(map[string]bool, len(keys))
		}
		for _, k := range keys {
			m.transientKeys[k] = true
		}
	}
}

// WithMetrics enables Prometheus instrumentation of the store:
// materialization and update counters, a live-cell gauge.
func WithMetrics(opts ...MetricsOption) Option {
	return func(m *Manager) {
		m.metrics = newStoreMetrics(opts...)
	}
}

// WithTracing enables an OpenTelemetry span around each Update call,
// carrying the state key as an attribute.
func WithTracing(tracerName string) Option {
	return func(m *Manager) {
		if tracerName == "" {
			tracerName = defaultTracerName
		}
		m.tracer = otel.Tracer(tracerName)
	}
}
