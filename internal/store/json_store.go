package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cadence/internal/logging"
)

// JSONStore keeps the snapshot in a single JSON file.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore creates a store at path. The file is created on first Save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the file path.
func (s *JSONStore) Path() string { return s.path }

// Load reads and migrates the snapshot.
func (s *JSONStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.StoreDebug("no snapshot at %s", s.path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, result, err := Migrate(data)
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		logging.StoreWarn("%s: %s", s.path, w)
	}
	return snap, nil
}

// Save writes snap to a temp file and renames it over the target.
func (s *JSONStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := *snap
	out.Version = CurrentVersion
	if out.SavedAt.IsZero() {
		out.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	logging.StoreDebug("saved snapshot to %s (%d bytes)", s.path, len(data))
	return nil
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }
