package ingest

import (
	"sort"
	"strings"

	"github.com/warp/kol-dashboard/reconcile"
)

// =============================================================================
// REPORT - Typing failures observed while loading
// =============================================================================

// Report counts what a load read and what it could not type.
type Report struct {
	PlanRows     int `json:"plan_rows"`
	ActivityRows int `json:"activity_rows"`

	// Invalid counts non-blank cells that failed to parse, keyed by
	// "<table>.<field>". Such cells are nulled.
	Invalid map[string]int `json:"invalid,omitempty"`
}

func (r *Report) invalid(table string, f Field) {
	if r.Invalid == nil {
		r.Invalid = make(map[string]int)
	}
	r.Invalid[table+"."+string(f)]++
}

// InvalidCells is the total number of nulled cells.
func (r Report) InvalidCells() int {
	n := 0
	for _, c := range r.Invalid {
		n += c
	}
	return n
}

// InvalidKeys lists the keys of Invalid, sorted.
func (r Report) InvalidKeys() []string {
	keys := make([]string, 0, len(r.Invalid))
	for k := range r.Invalid {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// ROW TYPING
// =============================================================================

type rowReader struct {
	table  string
	cols   map[Field]string
	row    map[string]string
	report *Report
}

func (r rowReader) text(f Field) string {
	col, ok := r.cols[f]
	if !ok {
		return ""
	}
	return strings.TrimSpace(r.row[col])
}

func (r rowReader) entityID() *reconcile.EntityID {
	id, err := parseEntityID(r.text(FieldEntityID))
	if err != nil {
		r.report.invalid(r.table, FieldEntityID)
	}
	return id
}

func (r rowReader) date(f Field) *reconcile.Date {
	d, err := parseDate(r.text(f))
	if err != nil {
		r.report.invalid(r.table, f)
	}
	return d
}

func (r rowReader) frequency() *float64 {
	v, err := parseFrequency(r.text(FieldFrequency))
	if err != nil {
		r.report.invalid(r.table, FieldFrequency)
	}
	return v
}

func (r rowReader) coordinate(f Field, limit float64) *float64 {
	v, err := parseCoordinate(r.text(f), limit)
	if err != nil {
		r.report.invalid(r.table, f)
	}
	return v
}

// PlanRecords types the rows of a contract table.
func PlanRecords(t *Table, aliases Aliases, report *Report) ([]reconcile.PlanRecord, error) {
	cols, err := t.columns(aliases, planRequired)
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.PlanRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := rowReader{table: t.Name, cols: cols, row: row, report: report}
		out = append(out, reconcile.PlanRecord{
			EntityID:      r.entityID(),
			Name:          r.text(FieldName),
			Region:        r.text(FieldRegion),
			Country:       r.text(FieldCountry),
			ContractStart: r.date(FieldContractStart),
			ContractEnd:   r.date(FieldContractEnd),
			Frequency:     r.frequency(),
			Task:          r.text(FieldTask),
			Lat:           r.coordinate(FieldLat, 90),
			Lon:           r.coordinate(FieldLon, 180),
		})
	}
	report.PlanRows += len(out)
	return out, nil
}

// ActivityRecords types the rows of a tracking table.
func ActivityRecords(t *Table, aliases Aliases, report *Report) ([]reconcile.ActivityRecord, error) {
	cols, err := t.columns(aliases, activityRequired)
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.ActivityRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := rowReader{table: t.Name, cols: cols, row: row, report: report}
		out = append(out, reconcile.ActivityRecord{
			EntityID: r.entityID(),
			Activity: r.text(FieldActivity),
			Month:    r.text(FieldMonth),
			Week:     r.text(FieldWeek),
			Region:   r.text(FieldRegion),
			Name:     r.text(FieldName),
		})
	}
	report.ActivityRows += len(out)
	return out, nil
}
