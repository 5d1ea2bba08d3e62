package manager

import "context"

// defaultTracerName is used when WithTracing is given an empty name.
const defaultTracerName = "gentleman-signals-state-manager"

// traceContext is the parent context for update spans. Store writes
// are synchronous library calls with no request context of their own,
// so spans root here unless a future API threads one through.
func traceContext() context.Context {
	return context.Background()
}
