package manager

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/signals"
)

func testDefaults() DefaultState {
	return DefaultState{
		"counter": 0,
		"user":    "guest",
		"dark":    false,
	}
}

func TestGetReturnsConfiguredDefault(t *testing.T) {
	m := New(testDefaults())

	if got := Get[int](m, "counter").Get(); got != 0 {
		t.Errorf("counter default: expected 0, got %d", got)
	}
	if got := Get[string](m, "user").Get(); got != "guest" {
		t.Errorf("user default: expected guest, got %q", got)
	}
	if got := Get[bool](m, "dark").Get(); got != false {
		t.Errorf("dark default: expected false, got %v", got)
	}
}

func TestUpdateThenGetReflectsValue(t *testing.T) {
	m := New(testDefaults())

	Update(m, "counter", 41)
	if got := Get[int](m, "counter").Get(); got != 41 {
		t.Errorf("expected 41, got %d", got)
	}

	Apply(m, "counter", func(n int) int { return n + 1 })
	if got := Get[int](m, "counter").Get(); got != 42 {
		t.Errorf("expected 42 after Apply, got %d", got)
	}
}

func TestGetIdentityStable(t *testing.T) {
	m := New(testDefaults())

	a := Get[int](m, "counter")
	b := Get[int](m, "counter")
	if a != b {
		t.Error("repeated Get returned different cells")
	}
	if a.ID() != b.ID() {
		t.Errorf("cell IDs differ: %d vs %d", a.ID(), b.ID())
	}
}

func TestGetIdentityStableUnderConcurrentFirstAccess(t *testing.T) {
	m := New(testDefaults())

	var wg sync.WaitGroup
	cells := make([]*signals.Signal[int], 16)
	for i := range cells {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cells[i] = Get[int](m, "counter")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(cells); i++ {
		if cells[i] != cells[0] {
			t.Fatalf("goroutine %d got a different cell", i)
		}
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 materialized cell, got %d", m.Len())
	}
}

func TestUpdatesNotifySubscribersAcrossCallSites(t *testing.T) {
	m := New(testDefaults())

	seen := 0
	signals.NewEffect(nil, func() signals.Cleanup {
		_ = Get[int](m, "counter").Get()
		seen++
		return nil
	})

	// Write through a separately obtained handle.
	Update(m, "counter", 7)
	if seen != 2 {
		t.Errorf("expected effect to observe write from other call site, runs %d", seen)
	}
}

func TestUnknownKeyLenient(t *testing.T) {
	m := New(testDefaults())

	if got := Get[int](m, "missing").Get(); got != 0 {
		t.Errorf("expected zero value for unknown key, got %d", got)
	}
}

func TestUnknownKeyStrict(t *testing.T) {
	m := New(testDefaults(), WithStrictKeys())

	_, err := TryGet[int](m, "missing")
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}

	// Known keys still work.
	if _, err := TryGet[int](m, "counter"); err != nil {
		t.Errorf("known key failed in strict mode: %v", err)
	}
}

func TestTypeMismatch(t *testing.T) {
	m := New(testDefaults())

	// Default is int; asking for string must fail.
	if _, err := TryGet[string](m, "counter"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch for wrong default type, got %v", err)
	}

	// Materialize correctly, then ask with another type.
	_ = Get[int](m, "counter")
	if _, err := TryGet[float64](m, "counter"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch for wrong cell type, got %v", err)
	}
}

func TestGetPanicsOnMismatch(t *testing.T) {
	m := New(testDefaults())

	defer func() {
		if recover() == nil {
			t.Error("expected panic from Get with wrong type")
		}
	}()
	_ = Get[string](m, "counter")
}

func TestTypedKeys(t *testing.T) {
	counter := Key[int]("counter")
	user := Key[string]("user")
	m := New(testDefaults())

	if got := counter.Get(m).Get(); got != 0 {
		t.Errorf("expected default 0, got %d", got)
	}

	counter.Set(m, 10)
	counter.Update(m, func(n int) int { return n * 2 })
	if got := counter.Get(m).Get(); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}

	if got := user.Get(m).Get(); got != "guest" {
		t.Errorf("expected guest, got %q", got)
	}
}

func TestWatchDeliversChanges(t *testing.T) {
	m := New(testDefaults())

	var changes []Change
	stop := m.Watch(func(c Change) { changes = append(changes, c) })
	defer stop()

	Update(m, "counter", 1)

	if len(changes) != 2 {
		t.Fatalf("expected materialization + update, got %d changes: %v", len(changes), changes)
	}
	if !changes[0].Created || changes[0].Key != "counter" {
		t.Errorf("first change should be creation of counter, got %+v", changes[0])
	}
	if changes[1].Created || changes[1].Value != 1 {
		t.Errorf("second change should be update to 1, got %+v", changes[1])
	}
}

func TestWatchSeesDirectCellWrites(t *testing.T) {
	m := New(testDefaults())
	cell := Get[int](m, "counter")

	var updates []Change
	stop := m.Watch(func(c Change) {
		if !c.Created {
			updates = append(updates, c)
		}
	})
	defer stop()

	cell.Set(5) // not routed through Update

	if len(updates) != 1 || updates[0].Value != 5 {
		t.Errorf("expected direct write to reach watchers, got %v", updates)
	}
}

func TestWatchUnsubscribe(t *testing.T) {
	m := New(testDefaults())

	count := 0
	stop := m.Watch(func(Change) { count++ })
	Update(m, "counter", 1)
	after := count

	stop()
	Update(m, "counter", 2)

	if count != after {
		t.Errorf("watcher fired after unsubscribe: %d -> %d", after, count)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	m := New(testDefaults())
	Update(m, "counter", 9)
	Update(m, "user", "ada")

	snap := m.Snapshot()
	if snap["counter"] != 9 || snap["user"] != "ada" {
		t.Fatalf("unexpected snapshot: %v", snap)
	}

	m2 := New(testDefaults())
	m2.Restore(snap)

	if got := Get[int](m2, "counter").Get(); got != 9 {
		t.Errorf("restored counter: expected 9, got %d", got)
	}
	if got := Get[string](m2, "user").Get(); got != "ada" {
		t.Errorf("restored user: expected ada, got %q", got)
	}
}

func TestSnapshotIncludesPendingRestoredState(t *testing.T) {
	m := New(testDefaults())
	m.Restore(map[string]any{"counter": 7, "user": "ada"})

	// No access materialized any cell, yet the restored state must
	// survive the next capture.
	snap := m.Snapshot()
	if snap["counter"] != 7 || snap["user"] != "ada" {
		t.Errorf("restored state missing from snapshot: %v", snap)
	}

	// Reading a key moves it from pending to a live cell; the
	// snapshot must not duplicate or lose it.
	if got := Get[int](m, "counter").Get(); got != 7 {
		t.Fatalf("expected restored 7, got %d", got)
	}
	snap = m.Snapshot()
	if snap["counter"] != 7 || snap["user"] != "ada" {
		t.Errorf("snapshot after partial access: %v", snap)
	}
}

func TestSnapshotPendingRestoredSkipsTransient(t *testing.T) {
	m := New(DefaultState{"cursor": 0, "counter": 0},
		WithTransientKeys("cursor"))
	m.Restore(map[string]any{"cursor": 5, "counter": 9})

	snap := m.Snapshot()
	if _, ok := snap["cursor"]; ok {
		t.Error("transient restored key leaked into snapshot")
	}
	if snap["counter"] != 9 {
		t.Errorf("expected counter 9, got %v", snap["counter"])
	}
}

func TestMaterializeAllSeedsConfiguredState(t *testing.T) {
	m := New(DefaultState{
		"counter": 0,
		"user":    "guest",
		"dark":    false,
		"tags":    []any{"a", "b"},
	})
	m.Restore(map[string]any{"counter": 3, "extra": "restored"})

	m.MaterializeAll()

	want := []string{"counter", "dark", "extra", "tags", "user"}
	got := m.Keys()
	if len(got) != len(want) {
		t.Fatalf("materialized keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Cells carry their seed's type, so typed access still works.
	if v := Get[int](m, "counter").Get(); v != 3 {
		t.Errorf("counter = %d, want restored 3", v)
	}
	if v := Get[string](m, "user").Get(); v != "guest" {
		t.Errorf("user = %q, want default", v)
	}
	if v := Get[string](m, "extra").Get(); v != "restored" {
		t.Errorf("extra = %q, want restored", v)
	}

	snap := m.Snapshot()
	if len(snap) != len(want) {
		t.Errorf("snapshot after warm-up: %v", snap)
	}
}

func TestRestoreWritesMaterializedCells(t *testing.T) {
	m := New(testDefaults())
	cell := Get[int](m, "counter")

	m.Restore(map[string]any{"counter": 3})

	if cell.Get() != 3 {
		t.Errorf("expected restored value 3, got %d", cell.Get())
	}
}

func TestSnapshotSkipsTransientKeys(t *testing.T) {
	m := New(DefaultState{"cursor": 0, "counter": 0},
		WithTransientKeys("cursor"))

	Update(m, "cursor", 11)
	Update(m, "counter", 22)

	snap := m.Snapshot()
	if _, ok := snap["cursor"]; ok {
		t.Error("transient key leaked into snapshot")
	}
	if snap["counter"] != 22 {
		t.Errorf("expected counter 22 in snapshot, got %v", snap["counter"])
	}
}

func TestScopeDisposalClosesManager(t *testing.T) {
	scope := signals.NewScope(nil)
	m := New(testDefaults(), WithScope(scope))

	fired := 0
	m.Watch(func(Change) { fired++ })
	Update(m, "counter", 1)
	before := fired

	scope.Dispose()
	if !m.Closed() {
		t.Error("manager not closed with scope")
	}

	// Cells stay readable but watchers are gone.
	if got := Get[int](m, "counter").Get(); got != 1 {
		t.Errorf("cell unreadable after close, got %d", got)
	}
	Get[int](m, "counter").Set(2)
	if fired != before {
		t.Errorf("watcher fired after close: %d -> %d", before, fired)
	}
}

func TestKeysAndDefaultKeys(t *testing.T) {
	m := New(testDefaults())

	want := []string{"counter", "dark", "user"}
	got := m.DefaultKeys()
	if len(got) != len(want) {
		t.Fatalf("DefaultKeys: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DefaultKeys[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if len(m.Keys()) != 0 {
		t.Errorf("no keys should be materialized yet: %v", m.Keys())
	}
	_ = Get[int](m, "counter")
	if keys := m.Keys(); len(keys) != 1 || keys[0] != "counter" {
		t.Errorf("expected [counter], got %v", keys)
	}
}

func TestDefaultsCopiedAtConstruction(t *testing.T) {
	defaults := testDefaults()
	m := New(defaults)

	defaults["counter"] = 99

	if got := Get[int](m, "counter").Get(); got != 0 {
		t.Errorf("mutating the defaults argument leaked into the store: %d", got)
	}
}

func TestMetricsCountsThroughCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(testDefaults(), WithMetrics(MetricsRegistry(reg)))

	Update(m, "counter", 1)
	Update(m, "counter", 2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"gentleman_state_cells_materialized_total",
		"gentleman_state_updates_total",
		"gentleman_state_cells",
	} {
		if !found[name] {
			t.Errorf("metric %s not registered (have %v)", name, found)
		}
	}
}
