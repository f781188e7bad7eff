/*
service.go - The dashboard service: current dataset, cached results, reloads

PURPOSE:
  Holds the most recently loaded dataset and answers "what does the
  dashboard look like as of D" for it. Every request path (HTTP, CLI,
  watcher) goes through a Service.

CACHING:
  ComputeAt looks in three places, cheapest first:
    1. an in-process memo of Results for the current fingerprint
    2. the snapshot store, which survives restarts
    3. Engine.Compute, whose Result is written back to both
  Concurrent misses for the same as-of date are collapsed into one
  computation. Store failures are logged and never fail a request: the
  engine can always recompute.

RELOAD:
  Reload loads the source again and appends a LoadRun to the load log,
  whether or not it succeeded. A failed load keeps serving the previous
  dataset. When the fingerprint changes, the memo is dropped and every
  snapshot of another fingerprint is purged.

  Before the first successful load every read returns ErrDataUnavailable,
  joined with the last load error.

SEE ALSO:
  - reconcile/store.go: Store interface
  - ingest/source.go: Source implementations
  - api/watcher.go: periodic Reload
*/
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/warp/kol-dashboard/ingest"
	"github.com/warp/kol-dashboard/reconcile"
)

// DefaultTrendWorkers bounds the month computations a trend runs at once.
const DefaultTrendWorkers = 4

type memoKey struct {
	fingerprint string
	asOf        reconcile.Date
}

// Service serves reconciled dashboards for the latest loaded dataset.
type Service struct {
	Source ingest.Source
	Engine *reconcile.Engine
	Store  reconcile.Store

	// TrendWorkers bounds concurrent month computations; <= 0 means no limit.
	TrendWorkers int

	logger *zap.Logger
	now    func() time.Time
	flight singleflight.Group

	mu      sync.RWMutex
	data    *ingest.Dataset
	lastErr error
	memo    map[memoKey]*reconcile.Result
}

// New returns a service with no dataset loaded. Call Reload before serving.
func New(source ingest.Source, engine *reconcile.Engine, store reconcile.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Source:       source,
		Engine:       engine,
		Store:        store,
		TrendWorkers: DefaultTrendWorkers,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		memo:         make(map[memoKey]*reconcile.Result),
	}
}

// Year is the reporting year of the engine.
func (s *Service) Year() int {
	return s.Engine.Year
}

// Dataset returns the current dataset.
func (s *Service) Dataset() (*ingest.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current()
}

// current requires s.mu.
func (s *Service) current() (*ingest.Dataset, error) {
	if s.data != nil {
		return s.data, nil
	}
	if s.lastErr != nil {
		return nil, fmt.Errorf("%w: %w", reconcile.ErrDataUnavailable, s.lastErr)
	}
	return nil, fmt.Errorf("%w: no dataset loaded", reconcile.ErrDataUnavailable)
}

// =============================================================================
// RELOAD
// =============================================================================

// Reload loads the source and records the attempt. The returned run is
// always populated, also on error.
func (s *Service) Reload(ctx context.Context) (reconcile.LoadRun, error) {
	run := reconcile.LoadRun{
		ID:        uuid.NewString(),
		Source:    s.Source.String(),
		StartedAt: s.now(),
	}

	ds, err := s.Source.Load(ctx)
	run.CompletedAt = s.now()
	if err != nil {
		run.Status = reconcile.LoadFailed
		run.Error = err.Error()

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		s.logger.Error("source load failed",
			zap.String("source", run.Source),
			zap.Error(err))
		s.record(ctx, run)
		return run, err
	}

	run.Status = reconcile.LoadSucceeded
	run.Fingerprint = ds.Fingerprint
	run.PlanRows = ds.Report.PlanRows
	run.ActivityRows = ds.Report.ActivityRows
	run.InvalidCells = ds.Report.InvalidCells()

	s.mu.Lock()
	run.Changed = s.data == nil || s.data.Fingerprint != ds.Fingerprint
	s.data = ds
	s.lastErr = nil
	if run.Changed {
		s.memo = make(map[memoKey]*reconcile.Result)
	}
	s.mu.Unlock()

	if run.Changed {
		purged, err := s.Store.PurgeExcept(ctx, ds.Fingerprint)
		if err != nil {
			s.logger.Warn("purge stale snapshots failed", zap.Error(err))
		}
		s.logger.Info("dataset loaded",
			zap.String("source", run.Source),
			zap.String("fingerprint", ds.Fingerprint),
			zap.Int("plan_rows", run.PlanRows),
			zap.Int("activity_rows", run.ActivityRows),
			zap.Int("invalid_cells", run.InvalidCells),
			zap.Int("purged_snapshots", purged))
	} else {
		s.logger.Debug("dataset unchanged", zap.String("fingerprint", ds.Fingerprint))
	}

	s.record(ctx, run)
	return run, nil
}

func (s *Service) record(ctx context.Context, run reconcile.LoadRun) {
	if err := s.Store.RecordLoad(ctx, run); err != nil {
		s.logger.Warn("record load run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// =============================================================================
// COMPUTE
// =============================================================================

// ComputeAt returns the dashboard as of asOf. The Result is shared between
// callers and must not be modified.
func (s *Service) ComputeAt(ctx context.Context, asOf reconcile.Date) (*reconcile.Result, error) {
	if err := s.Engine.ValidateAsOf(asOf); err != nil {
		return nil, err
	}

	s.mu.RLock()
	ds, err := s.current()
	var cached *reconcile.Result
	if err == nil {
		cached = s.memo[memoKey{ds.Fingerprint, asOf}]
	}
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Shared with every concurrent caller of key, so detached from this
	// caller's cancellation.
	shared := context.WithoutCancel(ctx)
	key := ds.Fingerprint + "/" + asOf.String()
	v, err, _ := s.flight.Do(key, func() (any, error) {
		return s.load(shared, ds, asOf)
	})
	if err != nil {
		return nil, err
	}
	return v.(*reconcile.Result), nil
}

func (s *Service) load(ctx context.Context, ds *ingest.Dataset, asOf reconcile.Date) (*reconcile.Result, error) {
	snap, err := s.Store.GetSnapshot(ctx, ds.Fingerprint, asOf)
	if err != nil {
		s.logger.Warn("snapshot lookup failed", zap.String("as_of", asOf.String()), zap.Error(err))
	}

	var res *reconcile.Result
	if snap != nil {
		res = &snap.Result
	} else {
		res = s.Engine.Compute(ds.Dataset, asOf)
		s.logger.Debug("dashboard computed",
			zap.String("as_of", asOf.String()),
			zap.Int("rows", len(res.Rows)),
			zap.Int("activities_counted", res.Diagnostics.ActivityCounted),
			zap.Int("activities_unmapped", res.Diagnostics.ActivityUnmapped),
			zap.Int("activities_undated", res.Diagnostics.ActivityUndated))
		snap := reconcile.Snapshot{
			ID:          uuid.NewString(),
			Fingerprint: ds.Fingerprint,
			AsOf:        asOf,
			Result:      *res,
			CreatedAt:   s.now(),
		}
		if err := s.Store.SaveSnapshot(ctx, snap); err != nil {
			s.logger.Warn("snapshot save failed", zap.String("as_of", asOf.String()), zap.Error(err))
		}
	}

	s.mu.Lock()
	if s.data != nil && s.data.Fingerprint == ds.Fingerprint {
		s.memo[memoKey{ds.Fingerprint, asOf}] = res
	}
	s.mu.Unlock()
	return res, nil
}

// Trend is the mean active pacing at each month end up to the month of asOf.
func (s *Service) Trend(ctx context.Context, asOf reconcile.Date) ([]reconcile.TrendPoint, error) {
	if err := s.Engine.ValidateAsOf(asOf); err != nil {
		return nil, err
	}
	return reconcile.Trend(ctx, s, s.Engine.Year, asOf, s.TrendWorkers)
}

// =============================================================================
// HISTORY
// =============================================================================

func (s *Service) Snapshots(ctx context.Context) ([]reconcile.SnapshotInfo, error) {
	return s.Store.ListSnapshots(ctx)
}

func (s *Service) Loads(ctx context.Context, limit int) ([]reconcile.LoadRun, error) {
	return s.Store.ListLoads(ctx, limit)
}
