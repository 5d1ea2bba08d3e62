package manager

import "github.com/gentleman-programming/gentleman-signals-state-manager/pkg/signals"

// StateKey is a typed handle for a state key. Declaring keys as
// package-level values gives call sites compile-time value types:
//
//	var (
//	    Counter = manager.Key[int]("counter")
//	    User    = manager.Key[string]("user")
//	)
//
//	Counter.Set(m, 5)
//	n := Counter.Get(m).Get()
type StateKey[T any] struct {
	// Name is the key under which the cell lives in the store and
	// in the default-state configuration.
	Name string
}

// Key declares a typed state key.
func Key[T any](name string) StateKey[T] {
	return StateKey[T]{Name: name}
}

// Get returns the reactive cell for this key, materializing it on
// first access.
func (k StateKey[T]) Get(m *Manager) *signals.Signal[T] {
	return Get[T](m, k.Name)
}

// TryGet is Get with an error instead of a panic.
func (k StateKey[T]) TryGet(m *Manager) (*signals.Signal[T], error) {
	return TryGet[T](m, k.Name)
}

// Set overwrites the value for this key.
func (k StateKey[T]) Set(m *Manager, value T) {
	Update(m, k.Name, value)
}

// Update transforms the value for this key.
func (k StateKey[T]) Update(m *Manager, fn func(T) T) {
	Apply(m, k.Name, fn)
}
