package dashboard_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/warp/kol-dashboard/dashboard"
	"github.com/warp/kol-dashboard/ingest"
	"github.com/warp/kol-dashboard/reconcile"
	"github.com/warp/kol-dashboard/store/memory"
)

const year = 2025

var errBroken = errors.New("workbook locked")

type brokenSource struct{}

func (brokenSource) String() string { return "broken" }

func (brokenSource) Load(context.Context) (*ingest.Dataset, error) {
	return nil, &ingest.SourceError{Path: "kol.xlsx", Err: errBroken}
}

// switchSource fails until ok is set.
type switchSource struct {
	ok   bool
	data *ingest.StaticSource
}

func (s *switchSource) String() string { return "switch" }

func (s *switchSource) Load(ctx context.Context) (*ingest.Dataset, error) {
	if !s.ok {
		return brokenSource{}.Load(ctx)
	}
	return s.data.Load(ctx)
}

// gatedStore holds GetSnapshot until release is closed and honours the
// context it is given, like a database-backed store.
type gatedStore struct {
	*memory.Memory
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) GetSnapshot(ctx context.Context, fingerprint string, asOf reconcile.Date) (*reconcile.Snapshot, error) {
	close(g.entered)
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Memory.GetSnapshot(ctx, fingerprint, asOf)
}

func newService(t *testing.T, src ingest.Source) (*dashboard.Service, *memory.Memory) {
	t.Helper()
	store := memory.New()
	return dashboard.New(src, reconcile.NewEngine(year), store, nil), store
}

func endOf(m time.Month) reconcile.Date { return reconcile.EndOfMonth(year, m) }

func TestService_UnavailableBeforeFirstLoad(t *testing.T) {
	svc, _ := newService(t, ingest.NewSampleSource(year))

	_, err := svc.ComputeAt(context.Background(), endOf(time.March))
	assert.ErrorIs(t, err, reconcile.ErrDataUnavailable)

	_, err = svc.Dataset()
	assert.ErrorIs(t, err, reconcile.ErrDataUnavailable)
}

func TestService_FailedLoadReportsCause(t *testing.T) {
	// GIVEN: a source that cannot be read
	svc, _ := newService(t, brokenSource{})
	ctx := context.Background()

	// WHEN: reloading
	run, err := svc.Reload(ctx)

	// THEN: the failure is recorded and every read is unavailable
	require.Error(t, err)
	assert.Equal(t, reconcile.LoadFailed, run.Status)
	assert.Contains(t, run.Error, "workbook locked")

	_, err = svc.ComputeAt(ctx, endOf(time.March))
	assert.ErrorIs(t, err, reconcile.ErrDataUnavailable)
	assert.ErrorIs(t, err, errBroken)

	runs, err := svc.Loads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, reconcile.LoadFailed, runs[0].Status)
}

func TestService_ComputeMatchesEngine(t *testing.T) {
	svc, _ := newService(t, ingest.NewSampleSource(year))
	ctx := context.Background()

	run, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcile.LoadSucceeded, run.Status)
	assert.True(t, run.Changed)
	assert.NotEmpty(t, run.Fingerprint)

	asOf := endOf(time.June)
	got, err := svc.ComputeAt(ctx, asOf)
	require.NoError(t, err)

	want := reconcile.NewEngine(year).Compute(ingest.Sample(year), asOf)
	assert.Equal(t, want, got)
}

func TestService_CachesByAsOf(t *testing.T) {
	svc, store := newService(t, ingest.NewSampleSource(year))
	ctx := context.Background()
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	first, err := svc.ComputeAt(ctx, endOf(time.May))
	require.NoError(t, err)
	second, err := svc.ComputeAt(ctx, endOf(time.May))
	require.NoError(t, err)
	assert.Same(t, first, second, "second call is served from the memo")

	_, err = svc.ComputeAt(ctx, endOf(time.July))
	require.NoError(t, err)

	infos, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestService_ServesStoredSnapshotAfterRestart(t *testing.T) {
	// GIVEN: a store holding a snapshot for the sample fingerprint
	ctx := context.Background()
	src := ingest.NewSampleSource(year)
	ds, err := src.Load(ctx)
	require.NoError(t, err)

	store := memory.New()
	asOf := endOf(time.April)
	marker := reconcile.Result{AsOf: asOf, Year: year}
	require.NoError(t, store.SaveSnapshot(ctx, reconcile.Snapshot{
		ID: "stored", Fingerprint: ds.Fingerprint, AsOf: asOf, Result: marker, CreatedAt: time.Now(),
	}))

	// WHEN: a fresh service computes at that date
	svc := dashboard.New(src, reconcile.NewEngine(year), store, nil)
	_, err = svc.Reload(ctx)
	require.NoError(t, err)
	got, err := svc.ComputeAt(ctx, asOf)

	// THEN: the stored result is returned without recomputing
	require.NoError(t, err)
	assert.Empty(t, got.Rows)
	assert.Equal(t, marker, *got)
}

func TestService_ReloadPurgesOtherFingerprints(t *testing.T) {
	ctx := context.Background()
	src := ingest.NewSampleSource(year)
	svc, store := newService(t, src)

	_, err := svc.Reload(ctx)
	require.NoError(t, err)
	before, err := svc.ComputeAt(ctx, endOf(time.March))
	require.NoError(t, err)

	// Unchanged source keeps the memo.
	run, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, run.Changed)
	same, err := svc.ComputeAt(ctx, endOf(time.March))
	require.NoError(t, err)
	assert.Same(t, before, same)

	// Dropping the activity log changes the fingerprint.
	src.Data.Activities = nil
	run, err = svc.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, run.Changed)

	infos, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)

	after, err := svc.ComputeAt(ctx, endOf(time.March))
	require.NoError(t, err)
	assert.Zero(t, after.Diagnostics.ActivityCounted)
	assert.NotZero(t, before.Diagnostics.ActivityCounted)

	runs, err := svc.Loads(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestService_FailedReloadKeepsPreviousDataset(t *testing.T) {
	ctx := context.Background()
	src := &switchSource{ok: true, data: ingest.NewSampleSource(year)}
	svc, _ := newService(t, src)

	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	src.ok = false
	_, err = svc.Reload(ctx)
	require.Error(t, err)

	ds, err := svc.Dataset()
	require.NoError(t, err)
	assert.Len(t, ds.Plan, len(ingest.Sample(year).Plan))

	_, err = svc.ComputeAt(ctx, endOf(time.March))
	assert.NoError(t, err)

	runs, err := svc.Loads(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, reconcile.LoadFailed, runs[0].Status)
}

func TestService_RejectsAsOfOutsideYear(t *testing.T) {
	svc, _ := newService(t, ingest.NewSampleSource(year))
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	_, err = svc.ComputeAt(context.Background(), reconcile.NewDate(2024, time.December, 31))
	assert.ErrorIs(t, err, reconcile.ErrInvalidAsOf)
	assert.True(t, reconcile.IsClientError(err))

	_, err = svc.Trend(context.Background(), reconcile.NewDate(2026, time.January, 31))
	assert.ErrorIs(t, err, reconcile.ErrInvalidAsOf)
}

func TestService_Trend(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc, store := newService(t, ingest.NewSampleSource(year))
	ctx := context.Background()
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	points, err := svc.Trend(ctx, endOf(time.April))
	require.NoError(t, err)
	require.Len(t, points, 12)

	for i, p := range points {
		assert.Equal(t, reconcile.MonthNames[i], p.Month)
		assert.Equal(t, i < 4, p.Computed, p.Month)
	}

	april, err := svc.ComputeAt(ctx, endOf(time.April))
	require.NoError(t, err)
	mean, _ := reconcile.MeanActivePacing(april.Rows)
	assert.True(t, mean.Equal(points[3].Pacing))

	infos, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 4, "one snapshot per computed month")
}

func TestService_AliasChangeMissesStoredSnapshots(t *testing.T) {
	// GIVEN: a contracts file carrying both an Area and a Region column
	dir := t.TempDir()
	contracts := filepath.Join(dir, "contracts.csv")
	tracking := filepath.Join(dir, "tracking.csv")
	require.NoError(t, os.WriteFile(contracts, []byte(
		"KOL_ID,Name,Area,Region,Country,Contract Start,Contract End,Frequency,Task\n"+
			"101,Dr. Lee,OldArea,NewRegion,Korea,2025-01-01,2025-12-31,4,Lecture\n"), 0o644))
	require.NoError(t, os.WriteFile(tracking, []byte(
		"KOL_ID,Activity,Month,Week\n101,Lecture,Feb,1w\n"), 0o644))

	ctx := context.Background()
	store := memory.New()
	asOf := endOf(time.March)

	compute := func(aliases ingest.Aliases) *reconcile.Result {
		src := &ingest.CSVSource{ContractsPath: contracts, TrackingPath: tracking, Aliases: aliases}
		svc := dashboard.New(src, reconcile.NewEngine(year), store, nil)
		_, err := svc.Reload(ctx)
		require.NoError(t, err)
		res, err := svc.ComputeAt(ctx, asOf)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		return res
	}

	// WHEN: the same files and store are served under a new region mapping
	before := compute(ingest.DefaultAliases())
	after := compute(ingest.DefaultAliases().Merge(map[string][]string{"region": {"Region"}}))

	// THEN: the second service computes afresh instead of reusing the snapshot
	assert.Equal(t, "OldArea", before.Rows[0].Region)
	assert.Equal(t, "NewRegion", after.Rows[0].Region)

	infos, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1, "snapshots of the old mapping are purged")
}

func TestService_SharedComputeSurvivesCallerCancel(t *testing.T) {
	// GIVEN: a computation blocked inside the store
	store := &gatedStore{Memory: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	svc := dashboard.New(ingest.NewSampleSource(year), reconcile.NewEngine(year), store, nil)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		res *reconcile.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := svc.ComputeAt(ctx, endOf(time.May))
		done <- outcome{res, err}
	}()

	// WHEN: the caller that started it goes away mid-flight
	<-store.entered
	cancel()
	close(store.release)

	// THEN: the shared computation still completes and is cached
	got := <-done
	require.NoError(t, got.err)
	require.NotNil(t, got.res)

	infos, err := store.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestService_CancelledCallerStopsBeforeCompute(t *testing.T) {
	svc, store := newService(t, ingest.NewSampleSource(year))
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.ComputeAt(ctx, endOf(time.May))
	assert.ErrorIs(t, err, context.Canceled)

	infos, err := store.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}
