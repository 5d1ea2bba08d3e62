package signals

// Listener is anything that can be notified when a dependency changes.
// Memos and effects implement it; so can application code that wants to
// observe raw invalidation.
type Listener interface {
	// MarkDirty notifies the listener that a dependency changed.
	// For memos this invalidates the cached value; for effects it
	// triggers a re-run.
	MarkDirty()

	// ID returns a unique identifier, used to deduplicate
	// notifications inside a batch.
	ID() uint64
}

// Cleanup is returned by an effect body to release resources. It runs
// before the effect re-runs and when the effect is disposed.
type Cleanup func()
