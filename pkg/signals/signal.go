package signals

import (
	"reflect"
	"sync"
)

// cellBase provides type-erased subscriber management, shared by
// Signal[T] and Memo[T].
type cellBase struct {
	id uint64

	subs  []Listener
	subMu sync.RWMutex
}

// subscribe adds a listener, deduplicating by listener ID.
func (c *cellBase) subscribe(l Listener) {
	if l == nil {
		return
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	lid := l.ID()
	for _, existing := range c.subs {
		if existing.ID() == lid {
			return
		}
	}

	c.subs = append(c.subs, l)
}

func (c *cellBase) unsubscribe(l Listener) {
	if l == nil {
		return
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	lid := l.ID()
	for i, existing := range c.subs {
		if existing.ID() == lid {
			// Order doesn't matter, swap with last.
			c.subs[i] = c.subs[len(c.subs)-1]
			c.subs = c.subs[:len(c.subs)-1]
			return
		}
	}
}

// notifySubscribers fans a change out to subscribers. Subscribers are
// copied before notification so no lock is held while listener code
// runs. Inside a batch, notifications are queued instead.
func (c *cellBase) notifySubscribers() {
	c.subMu.RLock()
	subs := make([]Listener, len(c.subs))
	copy(subs, c.subs)
	c.subMu.RUnlock()

	if batchDepth() > 0 {
		for _, sub := range subs {
			queuePendingUpdate(sub)
		}
		return
	}

	for _, sub := range subs {
		sub.MarkDirty()
	}
}

// Signal is a writable reactive cell. Reading it inside a tracked
// context (memo computation, effect body, WithListener) subscribes the
// current listener to future changes.
type Signal[T any] struct {
	base cellBase

	value T
	mu    sync.RWMutex

	// equal decides whether a write changed the value. nil means
	// defaultEquals.
	equal func(T, T) bool

	opts cellOptions
}

// New creates a signal holding initial.
func New[T any](initial T, opts ...Option) *Signal[T] {
	return &Signal[T]{
		base: cellBase{
			id: nextID(),
		},
		value: initial,
		opts:  applyOptions(opts),
	}
}

// Get returns the current value and subscribes the current listener,
// if one is tracking.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	// Track after releasing the value lock to prevent deadlock with
	// listeners that read other signals while being subscribed.
	if l := currentListener(); l != nil {
		s.base.subscribe(l)
		if st, ok := l.(sourceTracker); ok {
			st.addSource(&s.base)
		}
	}

	return value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set writes a new value and notifies subscribers if it differs from
// the current one under the signal's equality function.
func (s *Signal[T]) Set(value T) {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if changed {
		s.base.notifySubscribers()
	}
}

// Update atomically transforms the current value. Subscribers are
// notified only if the result differs.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	oldValue := s.value
	newValue := fn(oldValue)
	changed := !s.equals(oldValue, newValue)
	if changed {
		s.value = newValue
	}
	s.mu.Unlock()

	if changed {
		s.base.notifySubscribers()
	}
}

// WithEquals configures a custom equality function and returns the
// signal. Useful where reflect.DeepEqual is too expensive or has the
// wrong semantics.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.base.id
}

// IsTransient reports whether the signal was created with the
// Transient option and should be excluded from snapshots.
func (s *Signal[T]) IsTransient() bool {
	return s.opts.transient
}

// GetAny returns the current value type-erased. Does not subscribe.
func (s *Signal[T]) GetAny() any {
	return s.Peek()
}

// SetAny writes a type-erased value. Returns ErrTypeMismatch when the
// dynamic type is not assignable to T.
func (s *Signal[T]) SetAny(value any) error {
	v, ok := value.(T)
	if !ok {
		return ErrTypeMismatch
	}
	s.Set(v)
	return nil
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// AnyCell is the type-erased view of a signal, used by snapshot and
// inspection code that cannot name the value type.
type AnyCell interface {
	ID() uint64
	IsTransient() bool
	GetAny() any
	SetAny(value any) error
}

var _ AnyCell = (*Signal[int])(nil)

// sourceTracker is implemented by listeners (memos, effects) that need
// to remember which cells they subscribed to so they can unsubscribe
// before re-tracking.
type sourceTracker interface {
	Listener
	addSource(source *cellBase)
}

// defaultEquals uses == for the common comparable kinds and falls back
// to reflect.DeepEqual for everything else.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}
