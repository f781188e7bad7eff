/*
Package sqlite provides a SQLite-backed implementation of reconcile.Store.

PURPOSE:
  Persists computed dashboard snapshots and the history of source loads so
  that a restarted server serves its first requests from disk instead of
  recomputing every month end of the trend chart.

KEY TABLES:
  dashboard_snapshots: Frozen Result per (fingerprint, as_of)
  load_runs:           Append-only log of source reload attempts

INVALIDATION:
  Snapshots are never updated field by field. A save for an existing
  (fingerprint, as_of) replaces the whole row. PurgeExcept removes every
  snapshot computed from another fingerprint after the source changes.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite only allows a single writer,
  and the mutex keeps readers off a half-written snapshot.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/kol.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := dashboard.New(source, engine, store, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - reconcile/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/kol-dashboard/reconcile"
)

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements reconcile.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Computed dashboards, one per source fingerprint and as-of date
	CREATE TABLE IF NOT EXISTS dashboard_snapshots (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		as_of TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(fingerprint, as_of)
	);

	CREATE INDEX IF NOT EXISTS idx_dashboard_snapshots_created_at
		ON dashboard_snapshots(created_at);

	-- Source reloads (append-only)
	CREATE TABLE IF NOT EXISTS load_runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		fingerprint TEXT,
		status TEXT NOT NULL,
		changed INTEGER NOT NULL DEFAULT 0,
		plan_rows INTEGER NOT NULL DEFAULT 0,
		activity_rows INTEGER NOT NULL DEFAULT 0,
		invalid_cells INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

// SaveSnapshot saves a computed dashboard, replacing any snapshot with the
// same fingerprint and as-of date.
func (s *Store) SaveSnapshot(ctx context.Context, snap reconcile.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resultJSON, err := json.Marshal(snap.Result)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO dashboard_snapshots (id, fingerprint, as_of, row_count, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint, as_of) DO UPDATE SET
			id = excluded.id,
			row_count = excluded.row_count,
			result_json = excluded.result_json,
			created_at = excluded.created_at
	`

	_, err = s.db.ExecContext(ctx, query,
		snap.ID, snap.Fingerprint, snap.AsOf.String(),
		len(snap.Result.Rows), string(resultJSON),
		createdAt.UTC().Format(timeLayout),
	)
	return err
}

// GetSnapshot retrieves the snapshot for fingerprint and as-of date.
func (s *Store) GetSnapshot(ctx context.Context, fingerprint string, asOf reconcile.Date) (*reconcile.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap reconcile.Snapshot
	var asOfStr, resultJSON, createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, fingerprint, as_of, result_json, created_at
		 FROM dashboard_snapshots WHERE fingerprint = ? AND as_of = ?`,
		fingerprint, asOf.String(),
	).Scan(&snap.ID, &snap.Fingerprint, &asOfStr, &resultJSON, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if snap.AsOf, err = reconcile.ParseDate(asOfStr); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", snap.ID, err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &snap.Result); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", snap.ID, err)
	}
	if snap.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s created_at: %w", snap.ID, err)
	}
	return &snap, nil
}

// ListSnapshots returns snapshot summaries, newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]reconcile.SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, as_of, row_count, created_at
		FROM dashboard_snapshots
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reconcile.SnapshotInfo
	for rows.Next() {
		var info reconcile.SnapshotInfo
		var asOf, createdAt string
		if err := rows.Scan(&info.ID, &info.Fingerprint, &asOf, &info.Rows, &createdAt); err != nil {
			return nil, err
		}
		var err error
		if info.AsOf, err = reconcile.ParseDate(asOf); err != nil {
			return nil, fmt.Errorf("corrupt snapshot %s as_of: %w", info.ID, err)
		}
		if info.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("corrupt snapshot %s created_at: %w", info.ID, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// PurgeExcept deletes every snapshot not computed from fingerprint keep.
func (s *Store) PurgeExcept(ctx context.Context, keep string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM dashboard_snapshots WHERE fingerprint != ?`, keep)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// =============================================================================
// LOAD LOG
// =============================================================================

// RecordLoad appends a load run.
func (s *Store) RecordLoad(ctx context.Context, r reconcile.LoadRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO load_runs (id, source, fingerprint, status, changed,
			plan_rows, activity_rows, invalid_cells, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Source, nullString(r.Fingerprint), r.Status, r.Changed,
		r.PlanRows, r.ActivityRows, r.InvalidCells, nullString(r.Error),
		r.StartedAt.UTC().Format(timeLayout),
		r.CompletedAt.UTC().Format(timeLayout),
	)
	return err
}

// ListLoads returns load runs, most recent first.
func (s *Store) ListLoads(ctx context.Context, limit int) ([]reconcile.LoadRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, source, fingerprint, status, changed, plan_rows, activity_rows,
			invalid_cells, error, started_at, completed_at
		FROM load_runs
		ORDER BY seq DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []reconcile.LoadRun
	for rows.Next() {
		var r reconcile.LoadRun
		var fingerprint, errText sql.NullString
		var startedAt, completedAt string
		if err := rows.Scan(
			&r.ID, &r.Source, &fingerprint, &r.Status, &r.Changed, &r.PlanRows, &r.ActivityRows,
			&r.InvalidCells, &errText, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}
		r.Fingerprint = fingerprint.String
		r.Error = errText.String
		var err error
		if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("corrupt load run %s started_at: %w", r.ID, err)
		}
		if r.CompletedAt, err = time.Parse(timeLayout, completedAt); err != nil {
			return nil, fmt.Errorf("corrupt load run %s completed_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"dashboard_snapshots", "load_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ reconcile.Store = (*Store)(nil)
