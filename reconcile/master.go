package reconcile

import "sort"

// =============================================================================
// ENTITY MASTER BUILDER
// =============================================================================

// BuildMasters collapses plan records into one EntityMaster per entity id,
// sorted by id. Descriptive fields take the first non-blank value in input
// order; the contract window spans the earliest start to the latest end,
// with blank dates defaulted to the reporting year bounds beforehand.
//
// The second return value counts records dropped for a missing entity id.
func BuildMasters(plan []PlanRecord, year int) ([]EntityMaster, int) {
	defaults := DefaultWindow(year)
	byID := make(map[EntityID]*EntityMaster)
	var order []EntityID
	missing := 0

	for _, rec := range plan {
		if rec.EntityID == nil {
			missing++
			continue
		}
		id := *rec.EntityID

		start := defaults.Start
		if rec.ContractStart != nil && !rec.ContractStart.IsZero() {
			start = *rec.ContractStart
		}
		end := defaults.End
		if rec.ContractEnd != nil && !rec.ContractEnd.IsZero() {
			end = *rec.ContractEnd
		}

		m, ok := byID[id]
		if !ok {
			m = &EntityMaster{ID: id, ContractStart: start, ContractEnd: end}
			byID[id] = m
			order = append(order, id)
		}

		if m.Name == "" {
			m.Name = rec.Name
		}
		if m.Region == "" {
			m.Region = rec.Region
		}
		if m.Country == "" {
			m.Country = rec.Country
		}
		if m.Lat == nil && rec.Lat != nil {
			lat := *rec.Lat
			m.Lat = &lat
		}
		if m.Lon == nil && rec.Lon != nil {
			lon := *rec.Lon
			m.Lon = &lon
		}
		if start.Before(m.ContractStart) {
			m.ContractStart = start
		}
		if end.After(m.ContractEnd) {
			m.ContractEnd = end
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	masters := make([]EntityMaster, 0, len(order))
	for _, id := range order {
		masters = append(masters, *byID[id])
	}
	return masters, missing
}
