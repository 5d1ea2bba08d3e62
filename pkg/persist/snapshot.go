package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/manager"
)

// Snapshot is the serialized form of a manager's state: one JSON
// document per key. Keeping values raw until Apply lets each be
// decoded into the concrete type of its target cell.
type Snapshot map[string]json.RawMessage

// Store moves snapshots to and from durable storage.
type Store interface {
	// Save writes the snapshot, replacing any previous one.
	Save(ctx context.Context, snap Snapshot) error

	// Load reads the most recent snapshot. A storage location that
	// has never been written returns an empty snapshot and no error.
	Load(ctx context.Context) (Snapshot, error)
}

// Capture serializes the manager's materialized, non-transient state.
func Capture(m *manager.Manager) (Snapshot, error) {
	state := m.Snapshot()
	snap := make(Snapshot, len(state))

	for key, value := range state {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("persist: marshal key %q: %w", key, err)
		}
		snap[key] = raw
	}
	return snap, nil
}

// Apply restores a snapshot into the manager. Each entry is decoded
// into the value type of its materialized cell, or the type of the
// configured default for keys not yet materialized. Entries that fail
// to decode are skipped and reported in the returned error; the rest
// are still applied.
func Apply(m *manager.Manager, snap Snapshot) error {
	decoded := make(map[string]any, len(snap))
	var failed []string

	for key, raw := range snap {
		target, ok := targetValue(m, key)
		if !ok || target == nil {
			// No type information: decode generically. The
			// manager will discard it if the shapes disagree.
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				failed = append(failed, key)
				continue
			}
			decoded[key] = v
			continue
		}

		ptr := reflect.New(reflect.TypeOf(target))
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			failed = append(failed, key)
			continue
		}
		decoded[key] = ptr.Elem().Interface()
	}

	m.Restore(decoded)

	if len(failed) > 0 {
		return fmt.Errorf("persist: %d snapshot entries failed to decode: %v", len(failed), failed)
	}
	return nil
}

// targetValue finds a value whose type the snapshot entry should
// decode into: the live cell's value if materialized, otherwise the
// configured default.
func targetValue(m *manager.Manager, key string) (any, bool) {
	if cell, ok := m.Cell(key); ok {
		return cell.GetAny(), true
	}
	return m.Default(key)
}

// Encode renders a snapshot as a single JSON document.
func (s Snapshot) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// DecodeSnapshot parses a JSON document produced by Encode.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(data) == 0 {
		return Snapshot{}, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("persist: decode snapshot: %w", err)
	}
	return snap, nil
}
