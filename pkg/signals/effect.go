package signals

import (
	"sync"
	"sync/atomic"
)

// Effect is a reactive side effect. It runs once on creation and
// re-runs whenever any signal or memo it read during the previous run
// changes. The body may return a Cleanup that runs before the next
// run and on disposal.
type Effect struct {
	id uint64

	fn      func() Cleanup
	cleanup Cleanup

	sources   []*cellBase
	sourcesMu sync.Mutex

	scope *Scope

	// running/again coalesce notifications that arrive while the
	// body is executing, so the effect re-runs once instead of
	// recursing.
	running atomic.Bool
	again   atomic.Bool

	disposed atomic.Bool
}

// NewEffect creates an effect owned by scope and runs it immediately.
// A nil scope creates an unowned effect that lives until the process
// exits; prefer passing a scope so disposal is deterministic.
func NewEffect(scope *Scope, fn func() Cleanup) *Effect {
	e := &Effect{
		id:    nextID(),
		fn:    fn,
		scope: scope,
	}

	if scope != nil {
		scope.registerEffect(e)
	}

	e.run()

	return e
}

// OnChange runs deps once to establish dependencies and then invokes
// callback on every subsequent change, skipping the initial run.
func OnChange(scope *Scope, deps func(), callback func()) *Effect {
	first := true
	return NewEffect(scope, func() Cleanup {
		deps()
		if first {
			first = false
			return nil
		}
		callback()
		return nil
	})
}

// MarkDirty schedules a re-run. Implements Listener. Notifications
// arriving during a run are coalesced into a single trailing run.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}

	if !e.running.CompareAndSwap(false, true) {
		e.again.Store(true)
		return
	}

	e.run()
	for e.again.Swap(false) && !e.disposed.Load() {
		e.run()
	}
	e.running.Store(false)
}

// ID returns the unique identifier for this effect. Implements
// Listener.
func (e *Effect) ID() uint64 {
	return e.id
}

// Dispose stops the effect, runs its pending cleanup, and
// unsubscribes it from all sources. Normally the owning scope calls
// this; manual disposal is for effects created without a scope.
func (e *Effect) Dispose() {
	e.dispose()
}

func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	// Re-track from scratch on every run.
	e.sourcesMu.Lock()
	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = e.sources[:0]
	e.sourcesMu.Unlock()

	old := setCurrentListener(e)
	e.cleanup = e.fn()
	setCurrentListener(old)
}

// addSource implements sourceTracker.
func (e *Effect) addSource(source *cellBase) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, s := range e.sources {
		if s == source {
			return
		}
	}
	e.sources = append(e.sources, source)
}

func (e *Effect) dispose() {
	if e.disposed.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.sourcesMu.Lock()
	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = nil
	e.sourcesMu.Unlock()
}

var _ sourceTracker = (*Effect)(nil)
