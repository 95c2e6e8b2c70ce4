package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps the encoded snapshot in memory. Encoding on Save gives
// callers the same isolation and migration path as the file backends.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Seed replaces the stored bytes, bypassing encoding. Useful for loading
// legacy snapshots.
func (s *MemoryStore) Seed(raw []byte) {
	s.mu.Lock()
	s.data = append([]byte(nil), raw...)
	s.mu.Unlock()
}

// Load decodes the stored snapshot.
func (s *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	data := s.data
	s.mu.Unlock()

	if data == nil {
		return nil, nil
	}
	snap, _, err := Migrate(data)
	return snap, err
}

// Save encodes snap.
func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	out := *snap
	out.Version = CurrentVersion
	data, err := json.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	s.mu.Lock()
	s.data = data
	s.saves++
	s.mu.Unlock()
	return nil
}

// Saves counts successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
