package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/signals"
)

// ErrUnknownKey is returned (in strict mode) when a key has no entry
// in the default-state configuration.
var ErrUnknownKey = errors.New("manager: unknown state key")

// ErrTypeMismatch is returned when a key's cell holds a different
// value type than the one requested.
var ErrTypeMismatch = errors.New("manager: state value type mismatch")

// DefaultState enumerates the initial value for every key the store
// may serve. It is captured by value at construction and never
// mutated afterwards.
type DefaultState map[string]any

// Change describes one committed store mutation, delivered to
// watchers registered via Watch.
type Change struct {
	// Key is the state key that changed.
	Key string

	// Value is the committed value.
	Value any

	// Created is true for the change emitted when a cell is first
	// materialized from its default.
	Created bool
}

// Manager is a keyed store of lazily materialized signals.
// All methods are safe for concurrent use.
type Manager struct {
	defaults map[string]any

	// cells maps key -> *signals.Signal[T]. The concrete type is
	// fixed by the first accessor for the key.
	cells sync.Map

	// restored holds values from Restore for keys not yet
	// materialized; consulted before defaults.
	restored   map[string]any
	restoredMu sync.Mutex

	scope *signals.Scope

	strict        bool
	transientKeys map[string]bool

	logger  *slog.Logger
	metrics *storeMetrics
	tracer  trace.Tracer

	watchers   map[uint64]func(Change)
	watchersMu sync.RWMutex
	watcherSeq uint64

	cellCount atomic.Int64
	closed    atomic.Bool
}

// New builds a Manager from the given default state. The defaults are
// copied; later mutation of the argument has no effect.
func New(defaults DefaultState, opts ...Option) *Manager {
	m := &Manager{
		defaults: make(map[string]any, len(defaults)),
		watchers: make(map[uint64]func(Change)),
		logger:   slog.Default(),
	}
	for k, v := range defaults {
		m.defaults[k] = v
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.scope != nil {
		m.scope.OnCleanup(m.close)
	}

	return m
}

// Get returns the reactive cell for key, materializing it from the
// default state on first access. Repeated calls return the identical
// cell. Panics if the cell exists with a different value type, or if
// the key is unknown and the manager is strict; use TryGet for an
// error-returning variant.
func Get[T any](m *Manager, key string) *signals.Signal[T] {
	sig, err := TryGet[T](m, key)
	if err != nil {
		panic(fmt.Sprintf("manager: Get[%T](%q): %v", *new(T), key, err))
	}
	return sig
}

// TryGet is Get with errors instead of panics: ErrUnknownKey when the
// key has no default and the manager is strict, ErrTypeMismatch when
// the cell or its default holds a different type.
func TryGet[T any](m *Manager, key string) (*signals.Signal[T], error) {
	if cell, ok := m.cells.Load(key); ok {
		sig, ok := cell.(*signals.Signal[T])
		if !ok {
			return nil, fmt.Errorf("%w: key %q", ErrTypeMismatch, key)
		}
		return sig, nil
	}

	initial, err := initialValue[T](m, key)
	if err != nil {
		return nil, err
	}

	var sigOpts []signals.Option
	if m.transientKeys[key] {
		sigOpts = append(sigOpts, signals.Transient())
	}
	sig := signals.New(initial, sigOpts...)

	actual, loaded := m.cells.LoadOrStore(key, sig)
	if loaded {
		// Lost the materialization race; adopt the winner.
		existing, ok := actual.(*signals.Signal[T])
		if !ok {
			return nil, fmt.Errorf("%w: key %q", ErrTypeMismatch, key)
		}
		return existing, nil
	}

	cellMaterialized(m, key, sig)
	return sig, nil
}

// initialValue resolves the seed value for key: restored snapshot
// value first, then the configured default, then the zero value.
func initialValue[T any](m *Manager, key string) (T, error) {
	var zero T

	m.restoredMu.Lock()
	if m.restored != nil {
		if raw, ok := m.restored[key]; ok {
			delete(m.restored, key)
			m.restoredMu.Unlock()
			if v, ok := raw.(T); ok {
				return v, nil
			}
			// Snapshot value of the wrong shape: fall back to
			// the default rather than poisoning the cell.
			m.logger.Warn("discarding restored value with wrong type",
				"key", key, "value", raw)
			return defaultValue[T](m, key)
		}
	}
	m.restoredMu.Unlock()

	v, err := defaultValue[T](m, key)
	if err != nil {
		return zero, err
	}
	return v, nil
}

func defaultValue[T any](m *Manager, key string) (T, error) {
	var zero T

	raw, ok := m.defaults[key]
	if !ok {
		if m.strict {
			return zero, fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		// Lenient mode serves unknown keys as the zero value.
		return zero, nil
	}

	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q has default %T", ErrTypeMismatch, key, raw)
	}
	return v, nil
}

// Update overwrites the value for key, materializing the cell first
// if needed, and notifies reactive subscribers and watchers.
func Update[T any](m *Manager, key string, value T) {
	sig := Get[T](m, key)

	if m.tracer != nil {
		_, span := m.tracer.Start(traceContext(), "manager.Update",
			trace.WithAttributes(attribute.String("state.key", key)))
		defer span.End()
	}

	sig.Set(value)
}

// Apply transforms the value for key with fn, atomically with respect
// to concurrent updates of the same cell.
func Apply[T any](m *Manager, key string, fn func(T) T) {
	Get[T](m, key).Update(fn)
}

// Cell returns the type-erased cell for key if it has been
// materialized. It never materializes; typed access fixes a cell's
// value type.
func (m *Manager) Cell(key string) (signals.AnyCell, bool) {
	cell, ok := m.cells.Load(key)
	if !ok {
		return nil, false
	}
	return cell.(signals.AnyCell), true
}

// Watch registers fn to be invoked synchronously, on the mutating
// goroutine, for every committed change. The returned function
// unregisters it.
func (m *Manager) Watch(fn func(Change)) func() {
	m.watchersMu.Lock()
	m.watcherSeq++
	id := m.watcherSeq
	m.watchers[id] = fn
	m.watchersMu.Unlock()

	return func() {
		m.watchersMu.Lock()
		delete(m.watchers, id)
		m.watchersMu.Unlock()
	}
}

// Default returns the configured default value for key.
func (m *Manager) Default(key string) (any, bool) {
	v, ok := m.defaults[key]
	return v, ok
}

// Keys returns the materialized keys in sorted order.
func (m *Manager) Keys() []string {
	var keys []string
	m.cells.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// DefaultKeys returns the configured key set in sorted order.
func (m *Manager) DefaultKeys() []string {
	keys := make([]string, 0, len(m.defaults))
	for k := range m.defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of materialized cells.
func (m *Manager) Len() int {
	return int(m.cellCount.Load())
}

// Snapshot returns the current value of every materialized,
// non-transient cell, plus restored values whose keys have not been
// read since Restore. Without the latter, a capture taken right after
// a restore would silently drop the state it was meant to carry
// forward.
func (m *Manager) Snapshot() map[string]any {
	snap := make(map[string]any)
	m.cells.Range(func(k, v any) bool {
		cell := v.(signals.AnyCell)
		if cell.IsTransient() {
			return true
		}
		snap[k.(string)] = cell.GetAny()
		return true
	})

	m.restoredMu.Lock()
	for k, v := range m.restored {
		if m.transientKeys[k] {
			continue
		}
		if _, ok := snap[k]; !ok {
			snap[k] = v
		}
	}
	m.restoredMu.Unlock()

	return snap
}

// Restore applies a snapshot. Values for materialized cells are
// written in a single batch; values for keys not yet materialized are
// used instead of the default on their first access. Entries whose
// type does not match their cell are skipped with a warning.
func (m *Manager) Restore(snapshot map[string]any) {
	pending := make(map[string]any)

	signals.Batch(func() {
		for key, value := range snapshot {
			cell, ok := m.cells.Load(key)
			if !ok {
				pending[key] = value
				continue
			}
			if err := cell.(signals.AnyCell).SetAny(value); err != nil {
				m.logger.Warn("skipping snapshot entry",
					"key", key, "error", err)
			}
		}
	})

	if len(pending) > 0 {
		m.restoredMu.Lock()
		if m.restored == nil {
			m.restored = make(map[string]any, len(pending))
		}
		for k, v := range pending {
			m.restored[k] = v
		}
		m.restoredMu.Unlock()
	}
}

// MaterializeAll materializes a cell for every key the store knows
// about: the configured defaults plus restored snapshot entries not
// yet read. Each cell's value type is fixed from its seed value, so
// this suits dynamically typed stores (a store driven by JSON
// configuration, like the CLI's); typed call sites materialize lazily
// on first access instead.
func (m *Manager) MaterializeAll() {
	seeds := make(map[string]any, len(m.defaults))
	for k, v := range m.defaults {
		seeds[k] = v
	}
	m.restoredMu.Lock()
	for k, v := range m.restored {
		seeds[k] = v
	}
	m.restoredMu.Unlock()

	for key, seed := range seeds {
		materializeSeed(m, key, seed)
	}
}

// materializeSeed runs key through the normal materialization path
// with the cell type fixed by the seed's dynamic type. Keys with
// existing cells are untouched; TryGet returns them as-is.
func materializeSeed(m *Manager, key string, seed any) {
	switch seed.(type) {
	case bool:
		_, _ = TryGet[bool](m, key)
	case int:
		_, _ = TryGet[int](m, key)
	case int64:
		_, _ = TryGet[int64](m, key)
	case float64:
		_, _ = TryGet[float64](m, key)
	case string:
		_, _ = TryGet[string](m, key)
	case []any:
		_, _ = TryGet[[]any](m, key)
	case map[string]any:
		_, _ = TryGet[map[string]any](m, key)
	default:
		_, _ = TryGet[any](m, key)
	}
}

// Scope returns the scope that owns this manager, if any.
func (m *Manager) Scope() *signals.Scope {
	return m.scope
}

// Closed reports whether the owning scope has been disposed.
func (m *Manager) Closed() bool {
	return m.closed.Load()
}

// cellMaterialized wires the change feed for a freshly stored cell
// and emits its creation change.
func cellMaterialized[T any](m *Manager, key string, sig *signals.Signal[T]) {
	m.cellCount.Add(1)
	if m.metrics != nil {
		m.metrics.materializations.Inc()
		m.metrics.cells.Inc()
	}

	// Per-cell effect: watchers see writes made directly on the
	// cell, not just ones routed through Update.
	signals.OnChange(m.scope,
		func() { _ = sig.Get() },
		func() { m.emit(Change{Key: key, Value: sig.Peek()}) },
	)

	m.emit(Change{Key: key, Value: sig.Peek(), Created: true})
}

func (m *Manager) emit(change Change) {
	if m.closed.Load() {
		return
	}

	if m.metrics != nil && !change.Created {
		m.metrics.updates.WithLabelValues(change.Key).Inc()
	}

	m.watchersMu.RLock()
	watchers := make([]func(Change), 0, len(m.watchers))
	for _, fn := range m.watchers {
		watchers = append(watchers, fn)
	}
	m.watchersMu.RUnlock()

	if len(watchers) == 0 {
		return
	}

	start := time.Now()
	for _, fn := range watchers {
		fn(change)
	}
	if m.metrics != nil {
		m.metrics.fanout.Observe(time.Since(start).Seconds())
	}
}

// close marks the manager closed: watchers are dropped and no further
// changes are emitted. Cells stay readable so in-flight readers do
// not observe torn state.
func (m *Manager) close() {
	if m.closed.Swap(true) {
		return
	}

	m.watchersMu.Lock()
	m.watchers = map[uint64]func(Change){}
	m.watchersMu.Unlock()

	if m.metrics != nil {
		m.metrics.cells.Sub(float64(m.cellCount.Load()))
	}
}
