// Package store persists the engine's versioned snapshot.
//
// Three backends implement DurableStore: a JSON file written by atomic
// rename, a SQLite database (pure-Go modernc driver by default, cgo mattn
// driver on request) and an in-memory store for throwaway sessions. All of
// them read through Migrate, so legacy snapshots upgrade transparently on
// load.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"cadence/internal/config"
	"cadence/internal/logging"
)

// DurableStore loads and saves snapshots. Load returns a nil snapshot when
// nothing has been saved yet.
type DurableStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

// Backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open selects the backend named by cfg. path is the resolved store path.
func Open(ctx context.Context, cfg config.StoreConfig, path string) (DurableStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	switch strings.ToLower(cfg.Backend) {
	case "", BackendJSON:
		logging.Store("using JSON store at %s", path)
		return NewJSONStore(path), nil
	case BackendSQLite:
		if strings.EqualFold(filepath.Ext(path), ".json") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		logging.Store("using SQLite store at %s (driver %s)", path, cfg.Driver)
		return OpenSQLite(ctx, path, cfg.Driver)
	case BackendMemory:
		logging.Store("using in-memory store")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
