package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/kol-dashboard/reconcile"
	"github.com/warp/kol-dashboard/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func snapshot(id, fp string, asOf reconcile.Date, created time.Time) reconcile.Snapshot {
	lat := 37.5
	return reconcile.Snapshot{
		ID:          id,
		Fingerprint: fp,
		AsOf:        asOf,
		CreatedAt:   created,
		Result: reconcile.Result{
			AsOf: asOf,
			Year: 2025,
			Masters: []reconcile.EntityMaster{
				{ID: 1, Name: "Dr. Lee", Region: "Asia", Country: "Korea", Lat: &lat},
			},
			Rows: []reconcile.DashboardRow{{
				EntityID:       1,
				Name:           "Dr. Lee",
				Task:           reconcile.TaskLecture,
				TargetCount:    4,
				ActualCount:    1,
				ContractStart:  reconcile.NewDate(2025, time.January, 1),
				ContractEnd:    reconcile.NewDate(2025, time.December, 31),
				PacingPercent:  decimal.RequireFromString("66.6667"),
				ElapsedPercent: decimal.NewFromInt(25),
				Status:         reconcile.StatusDelayed,
				Gap:            3,
			}},
			Diagnostics: reconcile.Diagnostics{ActivityUnmapped: 2},
		},
	}
}

func TestSnapshots_RoundTrip(t *testing.T) {
	// GIVEN: A saved snapshot
	store := newTestStore(t)
	ctx := context.Background()
	asOf := reconcile.NewDate(2025, time.March, 31)
	require.NoError(t, store.SaveSnapshot(ctx, snapshot("s1", "fp-a", asOf, time.Now())))

	// WHEN: Reading it back
	got, err := store.GetSnapshot(ctx, "fp-a", asOf)

	// THEN: The full result survives
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.ID)
	assert.True(t, asOf.Equal(got.AsOf))
	require.Len(t, got.Result.Rows, 1)
	row := got.Result.Rows[0]
	assert.True(t, decimal.RequireFromString("66.6667").Equal(row.PacingPercent))
	assert.Equal(t, reconcile.StatusDelayed, row.Status)
	assert.Equal(t, "2025-12-31", row.ContractEnd.String())
	assert.Equal(t, 2, got.Result.Diagnostics.ActivityUnmapped)
	require.NotNil(t, got.Result.Masters[0].Lat)
	assert.Nil(t, got.Result.Masters[0].Lon)

	missing, err := store.GetSnapshot(ctx, "fp-a", reconcile.NewDate(2025, time.April, 30))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSnapshots_ReplaceListAndPurge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	mar := reconcile.NewDate(2025, time.March, 31)
	apr := reconcile.NewDate(2025, time.April, 30)

	require.NoError(t, store.SaveSnapshot(ctx, snapshot("s1", "fp-a", mar, base)))
	require.NoError(t, store.SaveSnapshot(ctx, snapshot("s2", "fp-a", apr, base.Add(time.Second))))
	require.NoError(t, store.SaveSnapshot(ctx, snapshot("s3", "fp-b", mar, base.Add(2*time.Second))))

	// Same inputs replace the earlier row
	require.NoError(t, store.SaveSnapshot(ctx, snapshot("s4", "fp-a", mar, base.Add(3*time.Second))))

	infos, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	var ids []string
	for _, i := range infos {
		ids = append(ids, i.ID)
	}
	assert.Equal(t, []string{"s4", "s3", "s2"}, ids)
	assert.Equal(t, 1, infos[0].Rows)

	n, err := store.PurgeExcept(ctx, "fp-b")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	infos, err = store.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "fp-b", infos[0].Fingerprint)
}

func TestLoadRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordLoad(ctx, reconcile.LoadRun{
		ID: "l1", Source: "csv:a,b", Fingerprint: "fp-a", Status: reconcile.LoadSucceeded,
		Changed: true, PlanRows: 10, ActivityRows: 40, InvalidCells: 2,
		StartedAt: start, CompletedAt: start.Add(time.Second),
	}))
	require.NoError(t, store.RecordLoad(ctx, reconcile.LoadRun{
		ID: "l2", Source: "csv:a,b", Status: reconcile.LoadFailed, Error: "missing column",
		StartedAt: start.Add(time.Minute), CompletedAt: start.Add(time.Minute),
	}))

	runs, err := store.ListLoads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "l2", runs[0].ID)
	assert.Equal(t, "missing column", runs[0].Error)
	assert.Empty(t, runs[0].Fingerprint)
	assert.True(t, runs[1].Changed)
	assert.Equal(t, 40, runs[1].ActivityRows)
	assert.True(t, start.Equal(runs[1].StartedAt))

	runs, err = store.ListLoads(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "l2", runs[0].ID)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kol.db")
	ctx := context.Background()
	asOf := reconcile.NewDate(2025, time.June, 30)

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(ctx, snapshot("s1", "fp", asOf, time.Now())))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetSnapshot(ctx, "fp", asOf)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.ID)

	require.NoError(t, reopened.Reset(ctx))
	got, err = reopened.GetSnapshot(ctx, "fp", asOf)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_CorruptTimestampsFailReads(t *testing.T) {
	// GIVEN: a database whose timestamps were edited by hand
	path := filepath.Join(t.TempDir(), "kol.db")
	ctx := context.Background()
	asOf := reconcile.NewDate(2025, time.June, 30)

	store, err := sqlite.New(path)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.SaveSnapshot(ctx, snapshot("s1", "fp", asOf, time.Now())))
	now := time.Now()
	require.NoError(t, store.RecordLoad(ctx, reconcile.LoadRun{
		ID: "l1", Source: "sample", Status: reconcile.LoadSucceeded, StartedAt: now, CompletedAt: now,
	}))

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.ExecContext(ctx, `UPDATE dashboard_snapshots SET created_at = 'yesterday'`)
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `UPDATE load_runs SET completed_at = 'soon'`)
	require.NoError(t, err)

	// WHEN / THEN: every read reports the row instead of a zero time
	_, err = store.GetSnapshot(ctx, "fp", asOf)
	assert.ErrorContains(t, err, "corrupt snapshot s1 created_at")

	_, err = store.ListSnapshots(ctx)
	assert.ErrorContains(t, err, "corrupt snapshot s1 created_at")

	_, err = store.ListLoads(ctx, 0)
	assert.ErrorContains(t, err, "corrupt load run l1 completed_at")
}
