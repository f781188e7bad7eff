package insights

import (
	"sort"

	"github.com/warp/kol-dashboard/reconcile"
)

// =============================================================================
// CHART SERIES
// =============================================================================

// MonthCount is the number of logged activities in one tracking month.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthlyVolume counts raw activity records per month in calendar order.
// Every month is present. Records are not filtered by the as-of date, and
// records with an unknown month are ignored.
func MonthlyVolume(acts []reconcile.ActivityRecord) []MonthCount {
	counts := make([]MonthCount, len(reconcile.MonthNames))
	for i, name := range reconcile.MonthNames {
		counts[i].Month = name
	}
	for _, a := range acts {
		if m, ok := reconcile.MonthNumber(a.Month); ok {
			counts[m-1].Count++
		}
	}
	return counts
}

// RegionTarget is the planned task volume of one region.
type RegionTarget struct {
	Region      string `json:"region"`
	TargetCount int    `json:"target_count"`
}

// Regions sums target counts per region, sorted by region.
func Regions(rows []reconcile.DashboardRow) []RegionTarget {
	sums := make(map[string]int)
	for _, r := range rows {
		sums[r.Region] += r.TargetCount
	}
	out := make([]RegionTarget, 0, len(sums))
	for region, n := range sums {
		out = append(out, RegionTarget{Region: region, TargetCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// StatusCount is the number of rows with one status.
type StatusCount struct {
	Status reconcile.Status `json:"status"`
	Count  int              `json:"count"`
}

// StatusBreakdown counts rows per status. Only statuses that occur are
// returned, most frequent first; ties keep classification rule order.
func StatusBreakdown(rows []reconcile.DashboardRow) []StatusCount {
	counts := make(map[reconcile.Status]int)
	for _, r := range rows {
		counts[r.Status]++
	}
	var out []StatusCount
	for _, s := range reconcile.Statuses {
		if n := counts[s]; n > 0 {
			out = append(out, StatusCount{Status: s, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// DelayedTasks returns every row that is not Completed, sorted by pacing
// ascending. Rows with equal pacing keep their dashboard order.
func DelayedTasks(rows []reconcile.DashboardRow) []reconcile.DashboardRow {
	var out []reconcile.DashboardRow
	for _, r := range rows {
		if r.Status != reconcile.StatusCompleted {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PacingPercent.LessThan(out[j].PacingPercent)
	})
	return out
}

// MapPoint locates one entity.
type MapPoint struct {
	EntityID reconcile.EntityID `json:"entity_id"`
	Name     string             `json:"name"`
	Region   string             `json:"region"`
	Country  string             `json:"country"`
	Lat      float64            `json:"lat"`
	Lon      float64            `json:"lon"`
}

// MapPoints returns the masters that carry both coordinates.
func MapPoints(masters []reconcile.EntityMaster) []MapPoint {
	var out []MapPoint
	for _, m := range masters {
		if m.Lat == nil || m.Lon == nil {
			continue
		}
		out = append(out, MapPoint{
			EntityID: m.ID,
			Name:     m.Name,
			Region:   m.Region,
			Country:  m.Country,
			Lat:      *m.Lat,
			Lon:      *m.Lon,
		})
	}
	return out
}
