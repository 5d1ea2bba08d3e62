package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the store's Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "gentleman").
	Namespace string

	// Subsystem is the metrics subsystem (default: "state").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the store's Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// MetricsNamespace sets the metrics namespace.
func MetricsNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// MetricsSubsystem sets the metrics subsystem.
func MetricsSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// MetricsConstLabels sets constant labels for all metrics.
func MetricsConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// MetricsRegistry sets the Prometheus registry.
func MetricsRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "gentleman",
		Subsystem: "state",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// storeMetrics holds the instruments updated by the manager.
type storeMetrics struct {
	materializations prometheus.Counter
	updates          *prometheus.CounterVec
	cells            prometheus.Gauge
	fanout           prometheus.Histogram
}

func newStoreMetrics(opts ...MetricsOption) *storeMetrics {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(cfg.Registry)

	return &storeMetrics{
		materializations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "cells_materialized_total",
			Help:        "Total signal cells materialized from defaults.",
			ConstLabels: cfg.ConstLabels,
		}),
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "updates_total",
			Help:        "Total committed state updates, by key.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"key"}),
		cells: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "cells",
			Help:        "Signal cells currently live in the store.",
			ConstLabels: cfg.ConstLabels,
		}),
		fanout: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "change_fanout_seconds",
			Help:        "Time spent delivering one change to all watchers.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}
