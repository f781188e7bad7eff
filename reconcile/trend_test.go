package reconcile_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/warp/kol-dashboard/reconcile"
)

// countingComputer wraps a Computer and counts calls.
type countingComputer struct {
	inner reconcile.Computer
	calls atomic.Int32
}

func (c *countingComputer) ComputeAt(ctx context.Context, asOf reconcile.Date) (*reconcile.Result, error) {
	c.calls.Add(1)
	return c.inner.ComputeAt(ctx, asOf)
}

type failingComputer struct{ err error }

func (f failingComputer) ComputeAt(context.Context, reconcile.Date) (*reconcile.Result, error) {
	return nil, f.err
}

func TestTrend_ComputesOnlyUpToAsOfMonth(t *testing.T) {
	defer goleak.VerifyNone(t)

	// GIVEN: The sample dataset bound to an engine
	engine := reconcile.NewEngine(year)
	ds := sampleDataset()
	c := &countingComputer{inner: engine.Bind(ds)}

	// WHEN: Computing the trend as of March 31 with two workers
	points, err := reconcile.Trend(context.Background(), c, year, date(time.March, 31), 2)

	// THEN: Twelve points in calendar order, only the first three computed
	require.NoError(t, err)
	require.Len(t, points, 12)
	assert.Equal(t, int32(3), c.calls.Load())

	for i, p := range points {
		assert.Equal(t, reconcile.MonthNames[i], p.Month)
		assert.Equal(t, reconcile.EndOfMonth(year, time.Month(i+1)).String(), p.ReportDate.String())
		if i < 3 {
			assert.True(t, p.Computed, p.Month)
			continue
		}
		assert.False(t, p.Computed, p.Month)
		assert.True(t, p.Pacing.IsZero(), p.Month)
	}

	// Each computed value equals the mean over active rows at that month end
	for _, p := range points[:3] {
		res := engine.Compute(ds, p.ReportDate)
		want, n := reconcile.MeanActivePacing(res.Rows)
		assert.Truef(t, want.Equal(p.Pacing), "%s: expected %s, got %s", p.Month, want, p.Pacing)
		assert.Equal(t, n, p.ActiveRows)
	}
}

func TestTrend_YearOutsideAsOf(t *testing.T) {
	engine := reconcile.NewEngine(year)
	c := engine.Bind(sampleDataset())

	before, err := reconcile.Trend(context.Background(), c, year, reconcile.NewDate(year-1, time.June, 1), 0)
	require.NoError(t, err)
	for _, p := range before {
		assert.False(t, p.Computed)
	}

	after, err := reconcile.Trend(context.Background(), c, year, reconcile.NewDate(year+1, time.June, 1), 0)
	require.NoError(t, err)
	for _, p := range after {
		assert.True(t, p.Computed)
	}
}

func TestTrend_PropagatesComputeError(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	points, err := reconcile.Trend(context.Background(), failingComputer{err: boom}, year, date(time.May, 31), 4)

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, points)
}

func TestTrend_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := reconcile.NewEngine(year).Bind(sampleDataset())
	_, err := reconcile.Trend(ctx, c, year, date(time.December, 31), 3)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeanActivePacing(t *testing.T) {
	rows := []reconcile.DashboardRow{
		{Status: reconcile.StatusOnTrack, PacingPercent: decimal.NewFromInt(120)},
		{Status: reconcile.StatusDelayed, PacingPercent: decimal.NewFromInt(40)},
		{Status: reconcile.StatusCompleted, PacingPercent: decimal.NewFromInt(500)},
		{Status: reconcile.StatusNotStarted},
	}

	mean, n := reconcile.MeanActivePacing(rows)
	assert.Equal(t, 2, n)
	assert.True(t, decimal.NewFromInt(80).Equal(mean), "got %s", mean)

	mean, n = reconcile.MeanActivePacing(rows[2:])
	assert.Equal(t, 0, n)
	assert.True(t, mean.IsZero())
}

func TestPacingFor(t *testing.T) {
	points := []reconcile.TrendPoint{
		{Month: "Jan", Pacing: decimal.NewFromInt(10)},
		{Month: "Feb", Pacing: decimal.NewFromInt(20)},
	}
	assert.True(t, decimal.NewFromInt(20).Equal(reconcile.PacingFor(points, time.February)))
	assert.True(t, reconcile.PacingFor(points, time.March).IsZero())
}
