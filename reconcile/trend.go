package reconcile

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// TREND AGGREGATOR - Mean pacing at every month end of the reporting year
// =============================================================================

// TrendPoint is the mean pacing of active rows at one month end.
// Months after the as-of month are not computed and carry a zero pacing.
type TrendPoint struct {
	Month      string          `json:"month"`
	ReportDate Date            `json:"report_date"`
	Pacing     decimal.Decimal `json:"pacing"`
	ActiveRows int             `json:"active_rows"`
	Computed   bool            `json:"computed"`
}

// MeanActivePacing averages PacingPercent over rows that are On Track or
// Delayed. It returns zero and a zero count when no row is active.
func MeanActivePacing(rows []DashboardRow) (decimal.Decimal, int) {
	sum := decimal.Zero
	n := 0
	for _, r := range rows {
		if r.Status.IsActive() {
			sum = sum.Add(r.PacingPercent)
			n++
		}
	}
	if n == 0 {
		return decimal.Zero, 0
	}
	return sum.Div(decimal.NewFromInt(int64(n))), n
}

// Trend re-runs c at the last day of every month of year up to and including
// the month of asOf. Months are independent and run on up to workers
// goroutines; the result is always in calendar order, one point per month.
func Trend(ctx context.Context, c Computer, year int, asOf Date, workers int) ([]TrendPoint, error) {
	points := make([]TrendPoint, len(MonthNames))
	for i, name := range MonthNames {
		points[i] = TrendPoint{
			Month:      name,
			ReportDate: EndOfMonth(year, time.Month(i+1)),
			Pacing:     decimal.Zero,
		}
	}

	last := int(asOf.Month())
	if asOf.Year() < year {
		last = 0
	} else if asOf.Year() > year {
		last = len(MonthNames)
	}

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := 0; i < last; i++ {
		i := i
		g.Go(func() error {
			res, err := c.ComputeAt(gctx, points[i].ReportDate)
			if err != nil {
				return err
			}
			points[i].Pacing, points[i].ActiveRows = MeanActivePacing(res.Rows)
			points[i].Computed = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// PacingFor returns the trend value of month m, or zero if absent.
func PacingFor(points []TrendPoint, m time.Month) decimal.Decimal {
	name := MonthName(m)
	for _, p := range points {
		if p.Month == name {
			return p.Pacing
		}
	}
	return decimal.Zero
}
