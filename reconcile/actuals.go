package reconcile

// =============================================================================
// ACTUAL AGGREGATOR
// =============================================================================

// ActualSummary is the output of AggregateActuals.
type ActualSummary struct {
	Counts map[TaskKey]int

	Undated       int // month or week token unknown, or week past month end
	AfterAsOf     int // dated after the as-of date
	Unmapped      int // label has no canonical task
	MissingEntity int // no entity id
	Counted       int // survived every filter
}

// AggregateActuals counts activities per (entity, canonical task) whose
// derived date is at or before asOf. Filters run in order: date, as-of,
// task label, entity.
func AggregateActuals(acts []ActivityRecord, year int, asOf Date) ActualSummary {
	summary := ActualSummary{Counts: make(map[TaskKey]int)}

	for _, a := range acts {
		at, ok := ActivityDate(year, a.Month, a.Week)
		if !ok {
			summary.Undated++
			continue
		}
		if at.After(asOf) {
			summary.AfterAsOf++
			continue
		}
		task, ok := NormalizeTask(a.Activity)
		if !ok {
			summary.Unmapped++
			continue
		}
		if a.EntityID == nil {
			summary.MissingEntity++
			continue
		}
		summary.Counts[TaskKey{EntityID: *a.EntityID, Task: task}]++
		summary.Counted++
	}
	return summary
}
