package signals

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive state for one goroutine: which
// scope owns newly created primitives, which listener is capturing
// dependencies, and the batch bookkeeping.
type trackingContext struct {
	currentScope    *Scope
	currentListener Listener

	// batchDepth tracks nested Batch() calls. While > 0, signal
	// writes queue notifications instead of firing immediately.
	batchDepth int

	// pendingUpdates accumulates listeners to notify when the
	// outermost batch exits. Deduplicated by ID before delivery.
	pendingUpdates []Listener
}

// trackingContexts stores per-goroutine tracking state.
var trackingContexts sync.Map

// goroutineID extracts the current goroutine's ID from the runtime
// stack header ("goroutine <id> ..."). Implementation detail only.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

func getTrackingContext() *trackingContext {
	gid := goroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

func currentListener() Listener {
	return getTrackingContext().currentListener
}

// setCurrentListener swaps the tracking listener and returns the
// previous one so callers can restore it.
func setCurrentListener(l Listener) Listener {
	ctx := getTrackingContext()
	old := ctx.currentListener
	ctx.currentListener = l
	return old
}

func currentScope() *Scope {
	return getTrackingContext().currentScope
}

func setCurrentScope(s *Scope) *Scope {
	ctx := getTrackingContext()
	old := ctx.currentScope
	ctx.currentScope = s
	return old
}

func batchDepth() int {
	return getTrackingContext().batchDepth
}

func incrementBatchDepth() {
	getTrackingContext().batchDepth++
}

// decrementBatchDepth returns true when the outermost batch exits.
func decrementBatchDepth() bool {
	ctx := getTrackingContext()
	ctx.batchDepth--
	return ctx.batchDepth == 0
}

func queuePendingUpdate(l Listener) {
	ctx := getTrackingContext()
	ctx.pendingUpdates = append(ctx.pendingUpdates, l)
}

func drainPendingUpdates() []Listener {
	ctx := getTrackingContext()
	updates := ctx.pendingUpdates
	ctx.pendingUpdates = nil
	return updates
}

// WithListener runs fn with l installed as the tracking listener.
// Signal reads inside fn subscribe l.
func WithListener(l Listener, fn func()) {
	old := setCurrentListener(l)
	defer setCurrentListener(old)
	fn()
}

// Untracked runs fn without capturing dependencies. Signal reads
// inside fn do not subscribe the surrounding listener.
func Untracked(fn func()) {
	old := setCurrentListener(nil)
	defer setCurrentListener(old)
	fn()
}
