package signals

import (
	"sync"
	"sync/atomic"
)

// Memo is a cached derived computation. Dependencies are tracked
// automatically while the computation runs; when any of them changes
// the memo is invalidated and recomputes lazily on the next read.
//
// Memos are subscribable like signals, so derived values can chain.
type Memo[T any] struct {
	base cellBase

	compute func() T

	value   T
	valueMu sync.RWMutex

	// valid is false when the cached value is stale.
	valid atomic.Bool

	sources   []*cellBase
	sourcesMu sync.Mutex

	equal func(T, T) bool

	// computing breaks recursion on circular dependencies.
	computing atomic.Bool
}

// NewMemo creates a memo. The computation does not run until the
// first Get or Peek.
func NewMemo[T any](compute func() T) *Memo[T] {
	return &Memo[T]{
		base: cellBase{
			id: nextID(),
		},
		compute: compute,
	}
}

// Get returns the memo's value, recomputing if stale, and subscribes
// the current listener.
func (m *Memo[T]) Get() T {
	if l := currentListener(); l != nil {
		m.base.subscribe(l)
		if st, ok := l.(sourceTracker); ok {
			st.addSource(&m.base)
		}
	}

	if !m.valid.Load() {
		m.recompute()
	}

	m.valueMu.RLock()
	value := m.value
	m.valueMu.RUnlock()
	return value
}

// Peek returns the value without subscribing. Still recomputes when
// stale.
func (m *Memo[T]) Peek() T {
	if !m.valid.Load() {
		m.recompute()
	}
	m.valueMu.RLock()
	value := m.value
	m.valueMu.RUnlock()
	return value
}

// MarkDirty invalidates the cached value and propagates downstream.
// Implements Listener.
func (m *Memo[T]) MarkDirty() {
	// CAS keeps invalidation idempotent.
	if m.valid.CompareAndSwap(true, false) {
		m.base.notifySubscribers()
	}
}

// ID returns the unique identifier for this memo. Implements Listener.
func (m *Memo[T]) ID() uint64 {
	return m.base.id
}

// addSource implements sourceTracker.
func (m *Memo[T]) addSource(source *cellBase) {
	m.sourcesMu.Lock()
	defer m.sourcesMu.Unlock()

	for _, s := range m.sources {
		if s == source {
			return
		}
	}
	m.sources = append(m.sources, source)
}

// WithEquals configures a custom equality function and returns the
// memo.
func (m *Memo[T]) WithEquals(fn func(T, T) bool) *Memo[T] {
	m.equal = fn
	return m
}

func (m *Memo[T]) recompute() {
	if m.computing.Swap(true) {
		// Circular dependency; keep the stale value.
		return
	}
	defer m.computing.Store(false)

	// Re-track from scratch: drop old subscriptions first.
	m.sourcesMu.Lock()
	for _, source := range m.sources {
		source.unsubscribe(m)
	}
	m.sources = m.sources[:0]
	m.sourcesMu.Unlock()

	old := setCurrentListener(m)
	newValue := m.compute()
	setCurrentListener(old)

	m.valueMu.Lock()
	m.value = newValue
	m.valueMu.Unlock()

	m.valid.Store(true)
}

var _ sourceTracker = (*Memo[int])(nil)
