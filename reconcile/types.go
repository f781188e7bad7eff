/*
Package reconcile provides the plan-vs-actual reconciliation engine.

PURPOSE:
  This package turns two loosely structured tables, a plan table of
  contracted task lines and a log of performed activities, into one row per
  (entity, task) with time-aware pacing metrics as of an arbitrary date.
  It is a pure function of (plan, activities, as-of): no I/O, no shared
  mutable state, identical output for identical input.

KEY CONCEPTS IN THIS FILE (types.go):
  - PlanRecord / ActivityRecord: source rows, already typed by ingest
  - EntityMaster: one row per tracked entity (contract window, location)
  - TaskKey / TaskTarget: per (entity, task) join key and target
  - DashboardRow: the reconciled, classified output row
  - Diagnostics: counts of rows the pipeline dropped and why

PIPELINE:
  plan ──► BuildMasters ──────────────┐
  plan ──► AggregateTargets ──┐       │
  acts ──► AggregateActuals ──┴► Join ┴► Evaluate ──► []DashboardRow
                                  (per as-of date)
  Trend wraps the whole chain in a loop over month ends.

DESIGN PRINCIPLES:
  1. Best effort: bad rows are dropped and counted, never fatal
  2. Precision: percentages use decimal.Decimal, never Inf or NaN
  3. Determinism: outputs are sorted by (entity, task)

SEE ALSO:
  - engine.go: Engine.Compute, the single entry point
  - pacing.go: metric formulas and the ordered status rules
  - trend.go: month-by-month pacing series
*/
package reconcile

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EntityID identifies a tracked entity (a KOL in the source workbook).
type EntityID int

func (id EntityID) String() string { return strconv.Itoa(int(id)) }

// ID returns a pointer to id, for building records with a present entity.
func ID(id int) *EntityID {
	e := EntityID(id)
	return &e
}

// =============================================================================
// SOURCE RECORDS
// =============================================================================

// PlanRecord is one contracted task line. Several records may share an
// entity. Nil pointers and empty strings mean the cell was blank or
// unparseable.
type PlanRecord struct {
	EntityID      *EntityID
	Name          string
	Region        string
	Country       string
	ContractStart *Date
	ContractEnd   *Date
	Frequency     *float64
	Task          string
	Lat           *float64
	Lon           *float64
}

// ActivityRecord is one performed activity in a week of a month of the
// reporting year.
type ActivityRecord struct {
	EntityID *EntityID
	Activity string
	Month    string
	Week     string
	Region   string
	Name     string
}

// Dataset is the pair of source tables the engine consumes.
type Dataset struct {
	Plan       []PlanRecord
	Activities []ActivityRecord
}

// =============================================================================
// DERIVED RECORDS
// =============================================================================

// EntityMaster is the collapsed view of one entity across its plan records.
type EntityMaster struct {
	ID            EntityID `json:"id"`
	Name          string   `json:"name"`
	Region        string   `json:"region"`
	Country       string   `json:"country"`
	ContractStart Date     `json:"contract_start"`
	ContractEnd   Date     `json:"contract_end"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
}

// TaskKey is the join key shared by targets and actual counts.
type TaskKey struct {
	EntityID EntityID
	Task     Task
}

// TaskTarget is the contracted count for one (entity, task).
type TaskTarget struct {
	TaskKey
	TargetCount int
}

// DashboardRow is the reconciled output row for one (entity, task).
type DashboardRow struct {
	EntityID      EntityID `json:"entity_id"`
	Name          string   `json:"name"`
	Region        string   `json:"region"`
	Country       string   `json:"country"`
	ContractStart Date     `json:"contract_start"`
	ContractEnd   Date     `json:"contract_end"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
	Task          Task     `json:"task"`
	TargetCount   int      `json:"target_count"`
	ActualCount   int      `json:"actual_count"`

	AchievementPercent decimal.Decimal `json:"achievement_percent"`
	TotalDays          int             `json:"total_days"`
	ElapsedDays        int             `json:"elapsed_days"`
	ElapsedPercent     decimal.Decimal `json:"elapsed_percent"`
	ExpectedCount      decimal.Decimal `json:"expected_count"`
	PacingPercent      decimal.Decimal `json:"pacing_percent"`
	Status             Status          `json:"status"`
	Gap                int             `json:"gap"`
}

// Window is the contract period the row is paced against.
func (r DashboardRow) Window() Window {
	return Window{Start: r.ContractStart, End: r.ContractEnd}
}

// =============================================================================
// DIAGNOSTICS - Rows dropped by the pipeline
// =============================================================================

// Diagnostics counts rows excluded at each stage of one computation.
type Diagnostics struct {
	PlanMissingEntity      int `json:"plan_missing_entity"`
	PlanIncompleteTarget   int `json:"plan_incomplete_target"`
	ActivityMissingEntity  int `json:"activity_missing_entity"`
	ActivityUndated        int `json:"activity_undated"`
	ActivityAfterAsOf      int `json:"activity_after_as_of"`
	ActivityUnmapped       int `json:"activity_unmapped"`
	ActivityCounted        int `json:"activity_counted"`
	RowsMissingLocation    int `json:"rows_missing_location"`
	UnmappedPlanTaskLabels int `json:"unmapped_plan_task_labels"`
}

// Result is the full output of one computation at one as-of date.
type Result struct {
	AsOf        Date           `json:"as_of"`
	Year        int            `json:"year"`
	Masters     []EntityMaster `json:"masters"`
	Rows        []DashboardRow `json:"rows"`
	Diagnostics Diagnostics    `json:"diagnostics"`
}

// Master returns the entity master for id.
func (r *Result) Master(id EntityID) (EntityMaster, bool) {
	for _, m := range r.Masters {
		if m.ID == id {
			return m, true
		}
	}
	return EntityMaster{}, false
}
