package signals

import (
	"sync/atomic"
	"testing"
)

func TestBatchSingleNotification(t *testing.T) {
	first := New("a")
	last := New("b")
	listener := newTestListener()

	WithListener(listener, func() {
		_ = first.Get()
		_ = last.Get()
	})

	Batch(func() {
		first.Set("x")
		last.Set("y")
	})

	if listener.dirtyCount() != 1 {
		t.Errorf("expected 1 deduplicated notification, got %d", listener.dirtyCount())
	}
}

func TestBatchDefersUntilExit(t *testing.T) {
	count := New(0)
	listener := newTestListener()

	WithListener(listener, func() { _ = count.Get() })

	Batch(func() {
		count.Set(1)
		if listener.dirtyCount() != 0 {
			t.Errorf("notification fired inside batch: %d", listener.dirtyCount())
		}
	})

	if listener.dirtyCount() != 1 {
		t.Errorf("expected notification after batch, got %d", listener.dirtyCount())
	}
}

func TestBatchNested(t *testing.T) {
	count := New(0)
	listener := newTestListener()

	WithListener(listener, func() { _ = count.Get() })

	Batch(func() {
		count.Set(1)
		Batch(func() {
			count.Set(2)
		})
		// Inner batch exit must not flush.
		if listener.dirtyCount() != 0 {
			t.Errorf("inner batch flushed early: %d", listener.dirtyCount())
		}
		count.Set(3)
	})

	if listener.dirtyCount() != 1 {
		t.Errorf("expected 1 notification after outermost batch, got %d", listener.dirtyCount())
	}
	if count.Get() != 3 {
		t.Errorf("expected final value 3, got %d", count.Get())
	}
}

func TestBatchEffectRunsOnce(t *testing.T) {
	a := New(0)
	b := New(0)
	var runs atomic.Int64

	NewEffect(nil, func() Cleanup {
		runs.Add(1)
		_ = a.Get()
		_ = b.Get()
		return nil
	})

	Batch(func() {
		a.Set(1)
		b.Set(2)
	})

	if runs.Load() != 2 {
		t.Errorf("expected initial run + 1 batched re-run, got %d", runs.Load())
	}
}

func TestBatchEmptyNoNotifications(t *testing.T) {
	count := New(0)
	listener := newTestListener()

	WithListener(listener, func() { _ = count.Get() })

	Batch(func() {})

	if listener.dirtyCount() != 0 {
		t.Errorf("empty batch notified: %d", listener.dirtyCount())
	}
}
