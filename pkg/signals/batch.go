package signals

// Batch coalesces the notifications produced by writes inside fn: a
// listener subscribed to any number of the written cells is marked
// dirty exactly once, when the outermost batch returns. Batches nest;
// inner batches flush nothing on their own.
//
//	signals.Batch(func() {
//	    firstName.Set("Ada")
//	    lastName.Set("Lovelace")
//	})
func Batch(fn func()) {
	incrementBatchDepth()

	defer func() {
		if decrementBatchDepth() {
			flushPending()
		}
	}()

	fn()
}

// flushPending delivers the notifications queued during a batch. Each
// listener is delivered at most once, in first-queued order.
func flushPending() {
	pending := drainPendingUpdates()

	delivered := make(map[uint64]bool, len(pending))
	for _, l := range pending {
		if delivered[l.ID()] {
			continue
		}
		delivered[l.ID()] = true
		l.MarkDirty()
	}
}
