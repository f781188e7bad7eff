package ingest

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// FIELDS AND ALIASES
// =============================================================================

// Field is the logical name of a source column.
type Field string

const (
	FieldEntityID      Field = "entity_id"
	FieldName          Field = "name"
	FieldRegion        Field = "region"
	FieldCountry       Field = "country"
	FieldContractStart Field = "contract_start"
	FieldContractEnd   Field = "contract_end"
	FieldFrequency     Field = "frequency"
	FieldTask          Field = "task"
	FieldLat           Field = "lat"
	FieldLon           Field = "lon"
	FieldActivity      Field = "activity"
	FieldMonth         Field = "month"
	FieldWeek          Field = "week"
)

// Aliases lists, per field, the header spellings that may carry it. Earlier
// spellings win when a header has several.
type Aliases map[Field][]string

// DefaultAliases matches the column headers of the contract and tracking
// sheets.
func DefaultAliases() Aliases {
	return Aliases{
		FieldEntityID:      {"KOL_ID", "kol_id", "ID"},
		FieldName:          {"Name"},
		FieldRegion:        {"Area", "Region"},
		FieldCountry:       {"Country"},
		FieldContractStart: {"Contract Start"},
		FieldContractEnd:   {"Contract End"},
		FieldFrequency:     {"Frequency"},
		FieldTask:          {"Task"},
		FieldLat:           {"lat", "Lat", "Latitude"},
		FieldLon:           {"lon", "Lon", "Longitude"},
		FieldActivity:      {"Activity"},
		FieldMonth:         {"Month"},
		FieldWeek:          {"Week"},
	}
}

// Merge returns a copy of a with the spellings of extra tried first.
func (a Aliases) Merge(extra map[string][]string) Aliases {
	out := make(Aliases, len(a))
	for f, names := range a {
		out[f] = append([]string(nil), names...)
	}
	for f, names := range extra {
		field := Field(f)
		out[field] = append(append([]string(nil), names...), out[field]...)
	}
	return out
}

// canonical encodes a with fields sorted and spellings in lookup order.
func (a Aliases) canonical() []byte {
	fields := make([]string, 0, len(a))
	for f := range a {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f)
		for _, name := range a[Field(f)] {
			b.WriteByte(0x1f)
			b.WriteString(name)
		}
		b.WriteByte(0x1e)
	}
	return []byte(b.String())
}

var (
	planRequired     = []Field{FieldEntityID, FieldTask, FieldFrequency}
	activityRequired = []Field{FieldEntityID, FieldActivity, FieldMonth, FieldWeek}
)

// foldHeader normalizes a header for loose matching: NFKC, Unicode case
// folding and collapsed whitespace.
func foldHeader(s string) string {
	s = norm.NFKC.String(s)
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// =============================================================================
// TABLE - A header plus rows of cells keyed by header text
// =============================================================================

// Table is one sheet or CSV file as read from disk.
type Table struct {
	Name   string
	Header []string
	Rows   []map[string]string
}

// resolve maps every field that has a column in t to that column's header.
// Exact matches are tried first for every alias, then folded matches.
func (t *Table) resolve(aliases Aliases) map[Field]string {
	exact := make(map[string]string, len(t.Header))
	folded := make(map[string]string, len(t.Header))
	for _, h := range t.Header {
		if _, ok := exact[h]; !ok {
			exact[h] = h
		}
		if k := foldHeader(h); k != "" {
			if _, ok := folded[k]; !ok {
				folded[k] = h
			}
		}
	}

	cols := make(map[Field]string)
	for field, names := range aliases {
		for _, name := range names {
			if h, ok := exact[name]; ok {
				cols[field] = h
				break
			}
		}
		if _, ok := cols[field]; ok {
			continue
		}
		for _, name := range names {
			if h, ok := folded[foldHeader(name)]; ok {
				cols[field] = h
				break
			}
		}
	}
	return cols
}

// columns resolves aliases and checks that every required field is present.
// A table without data rows passes the check and yields no records.
func (t *Table) columns(aliases Aliases, required []Field) (map[Field]string, error) {
	cols := t.resolve(aliases)
	if len(t.Rows) == 0 {
		return cols, nil
	}
	for _, f := range required {
		if _, ok := cols[f]; !ok {
			return nil, &ColumnError{Table: t.Name, Field: f}
		}
	}
	return cols, nil
}

// newTable builds a Table from raw rows where the first row is the header.
// Fully blank rows are skipped and short rows are padded with "".
func newTable(name string, raw [][]string) *Table {
	t := &Table{Name: name}
	if len(raw) == 0 {
		return t
	}
	for _, h := range raw[0] {
		t.Header = append(t.Header, strings.TrimSpace(h))
	}
	for _, cells := range raw[1:] {
		if blank(cells) {
			continue
		}
		row := make(map[string]string, len(t.Header))
		for i, h := range t.Header {
			if h == "" {
				continue
			}
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// tableFromMaps builds a Table from rows already keyed by header. The header
// is the sorted key set of the first row.
func tableFromMaps(name string, rows []map[string]string) *Table {
	t := &Table{Name: name}
	if len(rows) > 0 {
		for h := range rows[0] {
			t.Header = append(t.Header, h)
		}
		sort.Strings(t.Header)
	}
	for _, r := range rows {
		cells := make([]string, 0, len(r))
		for _, v := range r {
			cells = append(cells, v)
		}
		if blank(cells) {
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
