package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists snapshots to a local JSON file. Writes go
// through a temp file and rename, so a crash mid-write never leaves a
// truncated snapshot behind.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path. Parent directories
// are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file path.
func (f *FileStore) Path() string {
	return f.path
}

// Save implements Store.
func (f *FileStore) Save(_ context.Context, snap Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist: create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("persist: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persist: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist: close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist: replace snapshot: %w", err)
	}
	return nil
}

// Load implements Store. A missing file yields an empty snapshot.
func (f *FileStore) Load(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return nil, fmt.Errorf("persist: read snapshot: %w", err)
	}
	return DecodeSnapshot(data)
}
