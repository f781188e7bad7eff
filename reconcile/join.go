package reconcile

// =============================================================================
// RECONCILIATION JOIN
// =============================================================================

// Join left-joins targets with actual counts (missing counts become 0) and
// then with entity masters. Rows whose entity has no master, or whose master
// has a blank region or country, are dropped; the second return value counts
// them. Row order follows targets.
func Join(targets []TaskTarget, actuals map[TaskKey]int, masters []EntityMaster) ([]DashboardRow, int) {
	byID := make(map[EntityID]EntityMaster, len(masters))
	for _, m := range masters {
		byID[m.ID] = m
	}

	rows := make([]DashboardRow, 0, len(targets))
	dropped := 0
	for _, t := range targets {
		m, ok := byID[t.EntityID]
		if !ok || m.Region == "" || m.Country == "" {
			dropped++
			continue
		}
		rows = append(rows, DashboardRow{
			EntityID:      t.EntityID,
			Name:          m.Name,
			Region:        m.Region,
			Country:       m.Country,
			ContractStart: m.ContractStart,
			ContractEnd:   m.ContractEnd,
			Lat:           m.Lat,
			Lon:           m.Lon,
			Task:          t.Task,
			TargetCount:   t.TargetCount,
			ActualCount:   actuals[t.TaskKey],
		})
	}
	return rows, dropped
}
