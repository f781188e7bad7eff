/*
pacing.go - Time-aware progress metrics and status classification

PURPOSE:
  Computes, for one reconciled row and one report date, how far the contract
  has elapsed, how many activities were expected by now, how the actual count
  compares to that expectation, and which status the row falls into.

KEY INSIGHT:
  Achievement compares actual work with the FINAL target. Pacing compares it
  with the PRO-RATED target at the report date. An entity with 5 of 10
  lectures done is 50% achieved, but exactly on pace half-way through the
  contract.

FORMULAS:
  achievement = 100 × actual / target                  (0 when target is 0)
  total_days  = contract_end − contract_start          (may be ≤ 0)
  elapsed     = clamp(report − contract_start, 0, total_days)
  elapsed_pct = 100 × elapsed / total_days             (0 when total ≤ 0)
  expected    = target × elapsed_pct / 100
  pacing      = 100 × actual / expected                (expected > 0)
              = 100 when expected is 0 and actual > 0
              = 0   otherwise
  gap         = max(target − actual, 0)

  expected and pacing are evaluated from the integer day counts directly
  (target × elapsed / total) so the pacing threshold is not disturbed by the
  rounding of elapsed_pct.

STATUS RULES (first match wins):
  1. achievement ≥ 100              → Completed
  2. target == 0                    → N/A
  3. elapsed_pct == 0, actual == 0  → Not Started
  4. pacing ≥ 100                   → On Track
  5. otherwise                      → Delayed

SEE ALSO:
  - period.go: Window.TotalDays / ElapsedDays
  - engine.go: applies Evaluate to every joined row
*/
package reconcile

import "github.com/shopspring/decimal"

// =============================================================================
// STATUS - Tagged variant evaluated by an ordered rule list
// =============================================================================

// Status is the discrete classification of a dashboard row.
type Status string

const (
	StatusCompleted  Status = "Completed"
	StatusNA         Status = "N/A"
	StatusNotStarted Status = "Not Started"
	StatusOnTrack    Status = "On Track"
	StatusDelayed    Status = "Delayed"
)

// Statuses lists every status in rule order.
var Statuses = []Status{StatusCompleted, StatusNA, StatusNotStarted, StatusOnTrack, StatusDelayed}

// IsActive reports whether the row carries a live obligation that the trend
// average should include.
func (s Status) IsActive() bool {
	return s == StatusOnTrack || s == StatusDelayed
}

// StatusRule is one entry of the classification list.
type StatusRule struct {
	Status  Status
	Matches func(row DashboardRow) bool
}

var hundred = decimal.NewFromInt(100)

// StatusRules is evaluated top-down; the last rule always matches.
var StatusRules = []StatusRule{
	{StatusCompleted, func(r DashboardRow) bool { return r.AchievementPercent.GreaterThanOrEqual(hundred) }},
	{StatusNA, func(r DashboardRow) bool { return r.TargetCount == 0 }},
	{StatusNotStarted, func(r DashboardRow) bool { return r.ElapsedPercent.IsZero() && r.ActualCount == 0 }},
	{StatusOnTrack, func(r DashboardRow) bool { return r.PacingPercent.GreaterThanOrEqual(hundred) }},
	{StatusDelayed, func(DashboardRow) bool { return true }},
}

// Classify returns the status of the first matching rule.
func Classify(row DashboardRow) Status {
	for _, rule := range StatusRules {
		if rule.Matches(row) {
			return rule.Status
		}
	}
	return StatusDelayed
}

// =============================================================================
// EVALUATE - Fill the metric columns of a joined row
// =============================================================================

// Evaluate returns row with every metric column and the status filled in as
// of reportDate. The input row is not modified.
func Evaluate(row DashboardRow, reportDate Date) DashboardRow {
	target := int64(row.TargetCount)
	actual := int64(row.ActualCount)

	row.AchievementPercent = decimal.Zero
	if target != 0 {
		row.AchievementPercent = decimal.NewFromInt(100 * actual).Div(decimal.NewFromInt(target))
	}

	window := row.Window()
	row.TotalDays = window.TotalDays()
	row.ElapsedDays = window.ElapsedDays(reportDate)
	total := int64(row.TotalDays)
	elapsed := int64(row.ElapsedDays)

	row.ElapsedPercent = decimal.Zero
	row.ExpectedCount = decimal.Zero
	if total > 0 {
		row.ElapsedPercent = decimal.NewFromInt(100 * elapsed).Div(decimal.NewFromInt(total))
		row.ExpectedCount = decimal.NewFromInt(target * elapsed).Div(decimal.NewFromInt(total))
	}

	switch {
	case row.ExpectedCount.IsPositive():
		row.PacingPercent = decimal.NewFromInt(100 * actual * total).Div(decimal.NewFromInt(target * elapsed))
	case actual > 0:
		row.PacingPercent = hundred
	default:
		row.PacingPercent = decimal.Zero
	}

	row.Gap = row.TargetCount - row.ActualCount
	if row.Gap < 0 {
		row.Gap = 0
	}
	row.Status = Classify(row)
	return row
}
