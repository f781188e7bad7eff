/*
watcher.go - Periodic source reload

PURPOSE:
  Re-reads the plan and activity source on a fixed interval so that edits
  to the workbook show up without a restart. Whether anything changed is
  decided by the dashboard service from the source fingerprint.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Does not reload on start: the caller performs the first load itself
  - Each tick is bounded by the interval so a hung source cannot pile up
  - Every attempt lands in the load log via Service.Reload

USAGE:
  watcher := NewSourceWatcher(svc, 10*time.Minute, logger)
  watcher.Start()
  // ... later
  watcher.Stop()

SEE ALSO:
  - dashboard/service.go: Reload
  - handlers.go: POST /api/reload (manual reload)
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/kol-dashboard/dashboard"
)

// SourceWatcher reloads the dashboard source periodically.
type SourceWatcher struct {
	Service       *dashboard.Service
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSourceWatcher creates a watcher. A non-positive interval disables it.
func NewSourceWatcher(svc *dashboard.Service, interval time.Duration, logger *zap.Logger) *SourceWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SourceWatcher{
		Service:       svc,
		CheckInterval: interval,
		Enabled:       interval > 0,
		logger:        logger.Named("watcher"),
	}
}

// Start begins the watcher. Calling Start on a running watcher is a no-op.
func (sw *SourceWatcher) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if !sw.Enabled {
		sw.logger.Info("disabled, not starting")
		return
	}
	if sw.ticker != nil {
		return
	}

	sw.ticker = time.NewTicker(sw.CheckInterval)
	sw.stop = make(chan struct{})
	sw.wg.Add(1)

	go sw.run(sw.ticker, sw.stop)

	sw.logger.Info("started", zap.Duration("interval", sw.CheckInterval))
}

// Stop stops the watcher and waits for an in-flight reload to finish.
func (sw *SourceWatcher) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.ticker != nil {
		sw.ticker.Stop()
		close(sw.stop)
		sw.wg.Wait()
		sw.ticker = nil
		sw.logger.Info("stopped")
	}
}

func (sw *SourceWatcher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer sw.wg.Done()

	for {
		select {
		case <-ticker.C:
			sw.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow reloads immediately (for testing/admin).
func (sw *SourceWatcher) RunNow() {
	timeout := sw.CheckInterval
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	run, err := sw.Service.Reload(ctx)
	if err != nil {
		// Service.Reload already logged the failure.
		return
	}
	if run.Changed {
		sw.logger.Info("source changed", zap.String("fingerprint", run.Fingerprint))
	}
}
