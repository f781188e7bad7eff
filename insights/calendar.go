package insights

import (
	"strings"

	"github.com/warp/kol-dashboard/reconcile"
)

// =============================================================================
// CALENDAR - One all-day event per logged activity of a month
// =============================================================================

// Event is a calendar entry spanning the week an activity was logged in.
type Event struct {
	EntityID reconcile.EntityID `json:"entity_id"`
	Title    string             `json:"title"`
	Task     reconcile.Task     `json:"task,omitempty"`
	Start    reconcile.Date     `json:"start"`
	End      reconcile.Date     `json:"end"`
	Color    string             `json:"color"`
}

// Calendar returns an event for every activity logged in month whose entity
// has a dashboard row. An event starts on the activity's derived date and
// ends six days later, or on the last day of the month if that comes first.
// Activities with an undatable week are skipped.
func Calendar(res *reconcile.Result, acts []reconcile.ActivityRecord, month string) ([]Event, error) {
	monthEnd, err := reconcile.MonthEnd(res.Year, month)
	if err != nil {
		return nil, err
	}

	onDashboard := make(map[reconcile.EntityID]bool, len(res.Rows))
	for _, r := range res.Rows {
		onDashboard[r.EntityID] = true
	}

	var events []Event
	for _, a := range acts {
		if a.EntityID == nil || !onDashboard[*a.EntityID] {
			continue
		}
		if strings.TrimSpace(a.Month) != strings.TrimSpace(month) {
			continue
		}
		start, ok := reconcile.ActivityDate(res.Year, a.Month, a.Week)
		if !ok {
			continue
		}
		end := start.AddDays(6)
		if end.After(monthEnd) {
			end = monthEnd
		}

		e := Event{
			EntityID: *a.EntityID,
			Title:    strings.TrimSpace(a.Name),
			Start:    start,
			End:      end,
			Color:    reconcile.DefaultTaskColor,
		}
		if task, ok := reconcile.NormalizeTask(a.Activity); ok {
			e.Task = task
			e.Color = reconcile.TaskColors[task]
		}
		if e.Title == "" {
			if m, ok := res.Master(*a.EntityID); ok {
				e.Title = m.Name
			}
		}
		events = append(events, e)
	}
	return events, nil
}
