package reconcile

// =============================================================================
// WINDOW - The contract period an entity's targets are paced against
// =============================================================================

// Window is a contract period [Start, End]. End before Start is tolerated:
// such a window has non-positive TotalDays and never elapses.
type Window struct {
	Start Date
	End   Date
}

// DefaultWindow is the full reporting year.
func DefaultWindow(year int) Window {
	return Window{Start: StartOfYear(year), End: EndOfYear(year)}
}

// TotalDays is End - Start in days. May be zero or negative.
func (w Window) TotalDays() int {
	return DaysBetween(w.Start, w.End)
}

// ElapsedDays is the number of days of the window consumed by at, clamped to
// [0, TotalDays]. Degenerate windows always report 0.
func (w Window) ElapsedDays(at Date) int {
	total := w.TotalDays()
	if total <= 0 {
		return 0
	}
	elapsed := DaysBetween(w.Start, at)
	if elapsed < 0 {
		return 0
	}
	if elapsed > total {
		return total
	}
	return elapsed
}
