// Package manager implements the keyed signal store: a mapping from
// application-defined state keys to writable reactive cells, seeded
// lazily from a default-state configuration supplied at construction.
//
// The first access for a key materializes its cell from the defaults;
// every subsequent access returns the identical cell, so subscribers
// attached through one call site observe writes made through another.
//
//	defaults := manager.DefaultState{
//	    "counter": 0,
//	    "user":    "guest",
//	}
//	m := manager.New(defaults, manager.WithScope(scope))
//
//	counter := manager.Get[int](m, "counter") // materializes with 0
//	counter.Set(5)
//	manager.Get[int](m, "counter").Get()      // 5, same cell
//
// Typed keys avoid repeating the type argument at call sites:
//
//	var Counter = manager.Key[int]("counter")
//	Counter.Set(m, 5)
//	n := Counter.Get(m).Get()
//
// A manager owned by a scope is closed when the scope is disposed,
// together with the per-cell change-feed effects.
package manager
