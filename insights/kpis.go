/*
Package insights derives the presentation views of a reconciled dashboard.

Every function here is a pure projection of a reconcile.Result (and, where
the view needs raw tracking data, the activity records it was built from).
Nothing is recomputed: pacing, status and gap come straight from the rows.

VIEWS:
  - KPIs:             headline numbers for the as-of date
  - MonthlyVolume:    logged activities per tracking month
  - Regions:          target volume per region
  - StatusBreakdown:  row count per status
  - DelayedTasks:     unfinished rows, worst pacing first
  - MapPoints:        entities with coordinates
  - Calendar:         one event per activity of a month
  - Profile:          every row of one entity
  - ActivityLog:      raw activities filtered by region and month

SEE ALSO:
  - reconcile/engine.go: produces the Result consumed here
  - api/handlers.go: serves each view as JSON
*/
package insights

import (
	"github.com/shopspring/decimal"

	"github.com/warp/kol-dashboard/reconcile"
)

// DefaultExpiryWindowDays is how far ahead ExpiringContracts looks.
const DefaultExpiryWindowDays = 30

var hundred = decimal.NewFromInt(100)

// =============================================================================
// KPIs
// =============================================================================

// KPIs are the headline numbers of the dashboard at one as-of date.
type KPIs struct {
	AsOf               reconcile.Date
	TotalEntities      int
	AvgPacing          decimal.Decimal
	DelayedTasks       int
	ExpiringContracts  int
	AchievementPercent decimal.Decimal
	TotalTarget        int
	TotalActual        int
}

// ComputeKPIs summarizes res. The average pacing is the trend value of the
// as-of month, so it matches the last computed point of the trend chart.
// Contracts expire when their end falls in (as-of, as-of + windowDays].
func ComputeKPIs(res *reconcile.Result, trend []reconcile.TrendPoint, windowDays int) KPIs {
	k := KPIs{
		AsOf:          res.AsOf,
		TotalEntities: len(res.Masters),
		AvgPacing:     reconcile.PacingFor(trend, res.AsOf.Month()),
	}

	for _, r := range res.Rows {
		if r.Status == reconcile.StatusDelayed {
			k.DelayedTasks++
		}
		k.TotalTarget += r.TargetCount
		k.TotalActual += r.ActualCount
	}

	limit := res.AsOf.AddDays(windowDays)
	for _, m := range res.Masters {
		if m.ContractEnd.After(res.AsOf) && m.ContractEnd.BeforeOrEqual(limit) {
			k.ExpiringContracts++
		}
	}

	k.AchievementPercent = decimal.Zero
	if k.TotalTarget > 0 {
		k.AchievementPercent = decimal.NewFromInt(int64(k.TotalActual)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(k.TotalTarget)))
	}
	return k
}
