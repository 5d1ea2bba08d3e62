package provide

import (
	"testing"

	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/manager"
	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/signals"
)

func TestStateProvidesManager(t *testing.T) {
	root := signals.NewScope(nil)
	defer root.Dispose()

	m := State(root, manager.DefaultState{"counter": 0})

	got, ok := Manager(root)
	if !ok || got != m {
		t.Fatalf("Manager(root) = %v, %v; want provided manager", got, ok)
	}

	if v := manager.Get[int](m, "counter").Get(); v != 0 {
		t.Errorf("expected default 0, got %d", v)
	}
}

func TestChildScopeResolvesParentManager(t *testing.T) {
	root := signals.NewScope(nil)
	defer root.Dispose()
	child := signals.NewScope(root)

	m := State(root, manager.DefaultState{"counter": 0})

	got, ok := Manager(child)
	if !ok || got != m {
		t.Errorf("child did not resolve parent manager")
	}
}

func TestChildScopeShadowsParentState(t *testing.T) {
	root := signals.NewScope(nil)
	defer root.Dispose()
	child := signals.NewScope(root)

	parentM := State(root, manager.DefaultState{"counter": 0})
	childM := State(child, manager.DefaultState{"counter": 100})

	manager.Update(parentM, "counter", 1)

	got, _ := Manager(child)
	if got != childM {
		t.Fatal("child resolved parent manager despite shadowing provider")
	}
	if v := manager.Get[int](got, "counter").Get(); v != 100 {
		t.Errorf("child store default: expected 100, got %d", v)
	}

	rootGot, _ := Manager(root)
	if v := manager.Get[int](rootGot, "counter").Get(); v != 1 {
		t.Errorf("parent store: expected 1, got %d", v)
	}
}

func TestCurrentManager(t *testing.T) {
	root := signals.NewScope(nil)
	defer root.Dispose()

	m := State(root, manager.DefaultState{"counter": 0})

	root.Run(func() {
		got, ok := CurrentManager()
		if !ok || got != m {
			t.Errorf("CurrentManager inside Run = %v, %v", got, ok)
		}
	})

	if _, ok := CurrentManager(); ok {
		t.Error("CurrentManager resolved outside any scope")
	}
}

func TestScopeDisposalTearsDownProvidedState(t *testing.T) {
	root := signals.NewScope(nil)
	scope := signals.NewScope(root)

	m := State(scope, manager.DefaultState{"counter": 0})
	manager.Update(m, "counter", 5)

	scope.Dispose()

	if !m.Closed() {
		t.Error("manager still open after owning scope disposal")
	}
	if _, ok := Manager(scope); ok {
		t.Error("disposed scope still resolves a manager")
	}
}

func TestManagerValueSharesStore(t *testing.T) {
	root := signals.NewScope(nil)
	defer root.Dispose()
	a := signals.NewScope(root)
	b := signals.NewScope(root)

	m := manager.New(manager.DefaultState{"counter": 0})
	ManagerValue(a, m)
	ManagerValue(b, m)

	fromA, _ := Manager(a)
	fromB, _ := Manager(b)
	if fromA != fromB {
		t.Error("sibling scopes resolved different managers")
	}
}
