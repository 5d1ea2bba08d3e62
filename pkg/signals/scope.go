package signals

import (
	"sync"
	"sync/atomic"
)

// Scope is a lifetime boundary for reactive primitives. Effects and
// cleanups registered on a scope are released when the scope is
// disposed, and child scopes are disposed with their parent. Scopes
// also carry environment values: a value provided on a scope is
// visible to that scope and all of its descendants.
//
// Scopes form a tree mirroring the application's component or request
// structure. The root scope typically lives for the whole process.
type Scope struct {
	id     uint64
	parent *Scope

	children   []*Scope
	childrenMu sync.Mutex

	effects   []*Effect
	effectsMu sync.Mutex

	cleanups   []func()
	cleanupsMu sync.Mutex

	// values holds environment entries provided on this scope.
	values   map[any]any
	valuesMu sync.RWMutex

	disposed atomic.Bool
}

// NewScope creates a scope under parent. A nil parent creates a root
// scope.
func NewScope(parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		parent.addChild(s)
	}

	return s
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed reports whether Dispose has been called.
func (s *Scope) IsDisposed() bool {
	return s.disposed.Load()
}

func (s *Scope) addChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	s.children = append(s.children, child)
}

func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

func (s *Scope) registerEffect(e *Effect) {
	if s.disposed.Load() {
		return
	}

	s.effectsMu.Lock()
	defer s.effectsMu.Unlock()
	s.effects = append(s.effects, e)
}

// OnCleanup registers fn to run when the scope is disposed. If the
// scope is already disposed, fn runs immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed.Load() {
		fn()
		return
	}

	s.cleanupsMu.Lock()
	defer s.cleanupsMu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// Provide stores an environment value on this scope, visible to the
// scope and its descendants via Lookup.
func (s *Scope) Provide(key, value any) {
	s.valuesMu.Lock()
	defer s.valuesMu.Unlock()

	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[key] = value
}

// Lookup returns the environment value for key from this scope or the
// nearest ancestor that provides it. Returns nil when no scope in the
// chain has the key.
func (s *Scope) Lookup(key any) any {
	s.valuesMu.RLock()
	if s.values != nil {
		if val, ok := s.values[key]; ok {
			s.valuesMu.RUnlock()
			return val
		}
	}
	s.valuesMu.RUnlock()

	if s.parent != nil {
		return s.parent.Lookup(key)
	}

	return nil
}

// Run executes fn with this scope installed as the goroutine's current
// scope, so primitives created inside fn attach to it and Use-style
// lookups resolve against it.
func (s *Scope) Run(fn func()) {
	old := setCurrentScope(s)
	defer setCurrentScope(old)
	fn()
}

// CurrentScope returns the goroutine's current scope, or nil when none
// is installed.
func CurrentScope() *Scope {
	return currentScope()
}

// Dispose tears down the scope: child scopes first (in reverse
// creation order), then effects, then cleanups (also reverse order).
// Disposing twice is a no-op.
func (s *Scope) Dispose() {
	if s.disposed.Swap(true) {
		return
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.childrenMu.Lock()
	children := make([]*Scope, len(s.children))
	copy(children, s.children)
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	s.effectsMu.Lock()
	effects := s.effects
	s.effects = nil
	s.effectsMu.Unlock()

	for _, e := range effects {
		e.dispose()
	}

	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	s.valuesMu.Lock()
	s.values = nil
	s.valuesMu.Unlock()
}
