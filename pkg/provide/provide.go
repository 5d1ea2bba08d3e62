// Package provide registers state managers as environment values on a
// scope tree, the configuration-time half of the library: an
// application provides its default state once at bootstrap and any
// code running under that scope resolves the same manager.
//
//	root := signals.NewScope(nil)
//	m := provide.State(root, manager.DefaultState{
//	    "counter": 0,
//	    "user":    "guest",
//	})
//
//	// anywhere under root:
//	m, ok := provide.Manager(childScope)
//
// A child scope may call provide.State again to shadow the parent's
// store for its own subtree.
package provide

import (
	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/manager"
	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/signals"
)

// managerKey is the environment key under which the manager is
// provided. Unexported so only this package's accessors see it.
type managerKey struct{}

// State builds a Manager from defaults, ties it to scope, and
// provides it as an environment value for the scope's subtree.
func State(scope *signals.Scope, defaults manager.DefaultState, opts ...manager.Option) *manager.Manager {
	opts = append([]manager.Option{manager.WithScope(scope)}, opts...)
	m := manager.New(defaults, opts...)
	scope.Provide(managerKey{}, m)
	return m
}

// ManagerValue registers an existing manager on scope without
// rebinding its lifetime. Useful when one store must serve several
// sibling subtrees.
func ManagerValue(scope *signals.Scope, m *manager.Manager) {
	scope.Provide(managerKey{}, m)
}

// Manager resolves the nearest provided manager from scope or its
// ancestors.
func Manager(scope *signals.Scope) (*manager.Manager, bool) {
	if scope == nil {
		return nil, false
	}
	m, ok := scope.Lookup(managerKey{}).(*manager.Manager)
	return m, ok
}

// CurrentManager resolves the manager from the goroutine's current
// scope, as established by Scope.Run.
func CurrentManager() (*manager.Manager, bool) {
	return Manager(signals.CurrentScope())
}
