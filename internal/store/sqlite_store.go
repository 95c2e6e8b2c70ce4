package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"cadence/internal/cycle"
	"cadence/internal/logging"
)

// Driver names accepted by OpenSQLite.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshot (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL,
	saved_at TEXT NOT NULL,
	body TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS observations (
	id TEXT PRIMARY KEY,
	seq INTEGER NOT NULL,
	recorded_at TEXT NOT NULL,
	phase TEXT NOT NULL,
	cycle_day INTEGER NOT NULL DEFAULT 0,
	body TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_observations_seq ON observations(seq);
`

// SQLiteStore keeps the snapshot body in a single-row table and the
// observation history in its own table.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	driver string
}

// OpenSQLite opens (and initializes) the database at path.
func OpenSQLite(ctx context.Context, path, driver string) (*SQLiteStore, error) {
	if driver == "" {
		driver = DriverModernc
	}
	if driver != DriverModernc && driver != DriverMattn {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.StoreDebug("opened sqlite store %s with driver %s", path, driver)
	return &SQLiteStore{db: db, path: path, driver: driver}, nil
}

// Driver returns the database/sql driver in use.
func (s *SQLiteStore) Driver() string { return s.driver }

// Load reads the snapshot row and the observation history.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM snapshot WHERE id = 1").Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, result, err := Migrate([]byte(body))
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		logging.StoreWarn("%s: %s", s.path, w)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT body FROM observations ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	observations := []cycle.Observation{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		var obs cycle.Observation
		if err := json.Unmarshal([]byte(raw), &obs); err != nil {
			logging.StoreWarn("skipping corrupt observation row: %v", err)
			continue
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate observations: %w", err)
	}
	if len(observations) > 0 || len(snap.Observations) == 0 {
		snap.Observations = observations
	}

	return snap, nil
}

// Save replaces the snapshot and observation history in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}

	out := *snap
	out.Version = CurrentVersion
	if out.SavedAt.IsZero() {
		out.SavedAt = time.Now().UTC()
	}
	observations := out.Observations
	out.Observations = nil

	body, err := json.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot (id, version, saved_at, body) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version, saved_at = excluded.saved_at, body = excluded.body`,
		out.Version, out.SavedAt.Format(time.RFC3339Nano), string(body)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM observations"); err != nil {
		return fmt.Errorf("failed to clear observations: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO observations (id, seq, recorded_at, phase, cycle_day, body) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for i, obs := range observations {
		raw, err := json.Marshal(obs)
		if err != nil {
			return fmt.Errorf("failed to marshal observation %s: %w", obs.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, obs.ID, i, obs.Timestamp.Format(time.RFC3339Nano), string(obs.Phase), obs.CycleDay, string(raw)); err != nil {
			return fmt.Errorf("failed to insert observation %s: %w", obs.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	logging.StoreDebug("saved snapshot with %d observations", len(observations))
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
