package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/manager"
	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/signals"
)

// AutoPersistConfig configures automatic snapshotting.
type AutoPersistConfig struct {
	// Debounce is how long after the last change the snapshot is
	// written. Bursts of updates collapse into one save.
	// Default: 1s.
	Debounce time.Duration

	// Timeout bounds each Save call. Default: 10s.
	Timeout time.Duration

	// Logger receives save failures. Default: slog.Default().
	Logger *slog.Logger
}

// AutoPersistOption configures AutoPersist.
type AutoPersistOption func(*AutoPersistConfig)

// WithDebounce sets the settle time before a snapshot is written.
func WithDebounce(d time.Duration) AutoPersistOption {
	return func(c *AutoPersistConfig) {
		c.Debounce = d
	}
}

// WithSaveTimeout bounds each Save call.
func WithSaveTimeout(d time.Duration) AutoPersistOption {
	return func(c *AutoPersistConfig) {
		c.Timeout = d
	}
}

// WithSaveLogger sets the logger for save failures.
func WithSaveLogger(logger *slog.Logger) AutoPersistOption {
	return func(c *AutoPersistConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// AutoPersist watches m and writes a snapshot to store once changes
// settle for the configured debounce. It stops when scope is
// disposed; the returned function stops it earlier and flushes a
// final snapshot.
func AutoPersist(scope *signals.Scope, m *manager.Manager, store Store, opts ...AutoPersistOption) func() {
	cfg := AutoPersistConfig{
		Debounce: time.Second,
		Timeout:  10 * time.Second,
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var mu sync.Mutex
	var timer *time.Timer
	stopped := false

	save := func() {
		snap, err := Capture(m)
		if err != nil {
			cfg.Logger.Error("snapshot capture failed", "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()

		if err := store.Save(ctx, snap); err != nil {
			cfg.Logger.Error("snapshot save failed", "error", err)
		}
	}

	unwatch := m.Watch(func(manager.Change) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(cfg.Debounce, save)
	})

	stop := func() {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		stopped = true
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		mu.Unlock()

		unwatch()
		save() // final flush
	}

	if scope != nil {
		scope.OnCleanup(stop)
	}
	return stop
}
