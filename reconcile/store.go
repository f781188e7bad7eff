/*
store.go - Persistence interface for computed dashboard snapshots

PURPOSE:
  The engine is a pure function of (plan, activities, as-of). Recomputing is
  cheap but not free, and trend charts recompute twelve times per request.
  A SnapshotStore caches finished Results keyed by the same inputs: the
  source fingerprint and the as-of date.

INVALIDATION:
  A snapshot is only valid for the exact source bytes it was computed from.
  When the source fingerprint changes, callers Purge every snapshot that
  belongs to another fingerprint. Nothing is ever updated in place: a new
  as-of date or a new source always yields a new snapshot.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite, survives restarts
  - store/memory/memory.go: In-memory for testing and :memory: deployments

SEE ALSO:
  - dashboard/service.go: read-through cache in front of Engine.Compute
*/
package reconcile

import (
	"context"
	"time"
)

// =============================================================================
// SNAPSHOT - A frozen Result for one (fingerprint, as-of)
// =============================================================================

type Snapshot struct {
	ID          string
	Fingerprint string
	AsOf        Date
	Result      Result
	CreatedAt   time.Time
}

// SnapshotInfo is the listing view of a snapshot, without the rows.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	AsOf        Date      `json:"as_of"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"created_at"`
}

// Info summarizes s.
func (s Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:          s.ID,
		Fingerprint: s.Fingerprint,
		AsOf:        s.AsOf,
		Rows:        len(s.Result.Rows),
		CreatedAt:   s.CreatedAt,
	}
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

type SnapshotStore interface {
	// SaveSnapshot stores s, replacing any snapshot with the same
	// fingerprint and as-of date.
	SaveSnapshot(ctx context.Context, s Snapshot) error

	// GetSnapshot returns nil, nil when no snapshot exists.
	GetSnapshot(ctx context.Context, fingerprint string, asOf Date) (*Snapshot, error)

	// ListSnapshots returns summaries, newest first.
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)

	// PurgeExcept deletes every snapshot whose fingerprint differs from keep
	// and returns how many were removed.
	PurgeExcept(ctx context.Context, keep string) (int, error)
}

// =============================================================================
// LOAD LOG - History of source reloads
// =============================================================================

// Load run statuses.
const (
	LoadSucceeded = "succeeded"
	LoadFailed    = "failed"
)

// LoadRun records one attempt to load the source tables.
type LoadRun struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	Status       string    `json:"status"`
	Changed      bool      `json:"changed"`
	PlanRows     int       `json:"plan_rows"`
	ActivityRows int       `json:"activity_rows"`
	InvalidCells int       `json:"invalid_cells"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

type LoadLog interface {
	RecordLoad(ctx context.Context, run LoadRun) error

	// ListLoads returns the most recent runs first. limit <= 0 means all.
	ListLoads(ctx context.Context, limit int) ([]LoadRun, error)
}

// Store is everything the dashboard service persists.
type Store interface {
	SnapshotStore
	LoadLog
}
