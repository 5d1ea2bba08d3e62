// Package signals provides the reactive primitives underlying the
// state manager.
//
// Signal[T] is a writable reactive cell:
//
//	count := signals.New(0)
//	value := count.Get()  // read (subscribes the current listener)
//	count.Set(5)          // write (notifies subscribers)
//	count.Update(func(n int) int { return n + 1 })
//
// Memo[T] is a cached derived computation:
//
//	doubled := signals.NewMemo(func() int { return count.Get() * 2 })
//
// Effect runs a side effect whenever any signal it reads changes:
//
//	signals.NewEffect(scope, func() signals.Cleanup {
//	    fmt.Println("count:", count.Get())
//	    return nil
//	})
//
// Scope ties reactive primitives to a lifetime. Disposing a scope
// disposes its child scopes, effects, and registered cleanups, and
// drops any environment values provided on it.
//
// Multiple writes can be grouped so subscribers are notified once:
//
//	signals.Batch(func() {
//	    first.Set("Ada")
//	    last.Set("Lovelace")
//	})
//
// All primitives are safe for concurrent use. Dependency tracking is
// per goroutine; use Scope.Run or WithListener to establish a tracking
// context on a new goroutine.
package signals
