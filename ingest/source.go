/*
Package ingest loads the contract plan and the activity tracking log.

SOURCES:
  - WorkbookSource: one .xlsx workbook, one sheet per table (excelize)
  - CSVSource:      one CSV file per table (gocsv)
  - StaticSource:   an in-memory dataset, used for demos and tests

TYPING:
  Cells are read as raw text and typed best-effort. A cell that has content
  but cannot be typed is nulled and counted in Report.Invalid; the row itself
  is kept so the engine can account for it. A table that lacks a required
  column under every alias fails the whole load with a ColumnError.

  Required columns:
    plan      entity_id, task, frequency
    activity  entity_id, activity, month, week

FINGERPRINT:
  Every Dataset carries the SHA-256 of the bytes it was parsed from and of
  the alias table that mapped its columns. Two loads with the same
  fingerprint produce identical records, so the fingerprint is the cache
  key for computed snapshots.

SEE ALSO:
  - table.go: header alias resolution
  - parse.go: cell parsers
  - dashboard/service.go: reloads a Source and caches by fingerprint
*/
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/warp/kol-dashboard/reconcile"
)

// Table names used in reports and errors.
const (
	PlanTable     = "plan"
	ActivityTable = "activity"
)

// Default sheet names of the tracking workbook.
const (
	DefaultContractSheet = "contracts"
	DefaultTrackingSheet = "tracking"
)

// Dataset is a loaded plan and activity log.
type Dataset struct {
	reconcile.Dataset
	Fingerprint string
	Report      Report
	LoadedAt    time.Time
}

// Source loads a Dataset. Implementations must be safe to call repeatedly.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
	String() string
}

// fingerprint hashes each part with a length prefix so that moving bytes
// between parts changes the digest.
func fingerprint(parts ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// build types both tables. The alias table takes part in the fingerprint
// because it decides which column feeds which field.
func build(plan, activity *Table, aliases Aliases, raw ...[]byte) (*Dataset, error) {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	fp := fingerprint(append([][]byte{aliases.canonical()}, raw...)...)
	ds := &Dataset{Fingerprint: fp, LoadedAt: time.Now().UTC()}

	var err error
	if ds.Plan, err = PlanRecords(plan, aliases, &ds.Report); err != nil {
		return nil, err
	}
	if ds.Activities, err = ActivityRecords(activity, aliases, &ds.Report); err != nil {
		return nil, err
	}
	return ds, nil
}

// =============================================================================
// WORKBOOK SOURCE
// =============================================================================

// WorkbookSource reads both tables from sheets of one .xlsx file.
type WorkbookSource struct {
	Path          string
	ContractSheet string
	TrackingSheet string
	Aliases       Aliases
}

func (s *WorkbookSource) String() string { return "xlsx:" + s.Path }

func (s *WorkbookSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &SourceError{Path: s.Path, Err: err}
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &SourceError{Path: s.Path, Err: err}
	}
	defer f.Close()

	contractSheet := orDefault(s.ContractSheet, DefaultContractSheet)
	trackingSheet := orDefault(s.TrackingSheet, DefaultTrackingSheet)

	plan, err := s.sheet(f, contractSheet, PlanTable)
	if err != nil {
		return nil, err
	}
	activity, err := s.sheet(f, trackingSheet, ActivityTable)
	if err != nil {
		return nil, err
	}
	return build(plan, activity, s.Aliases, []byte(contractSheet), []byte(trackingSheet), raw)
}

// sheet reads raw cell values so that dates arrive as Excel serials rather
// than in the workbook's display format.
func (s *WorkbookSource) sheet(f *excelize.File, sheet, table string) (*Table, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &SourceError{Path: s.Path, Sheet: sheet, Err: err}
	}
	return newTable(table, rows), nil
}

// =============================================================================
// CSV SOURCE
// =============================================================================

// CSVSource reads each table from its own CSV file with a header row.
type CSVSource struct {
	ContractsPath string
	TrackingPath  string
	Aliases       Aliases
}

func (s *CSVSource) String() string { return "csv:" + s.ContractsPath + "," + s.TrackingPath }

func (s *CSVSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	planRaw, plan, err := readCSV(s.ContractsPath, PlanTable)
	if err != nil {
		return nil, err
	}
	activityRaw, activity, err := readCSV(s.TrackingPath, ActivityTable)
	if err != nil {
		return nil, err
	}
	return build(plan, activity, s.Aliases, planRaw, activityRaw)
}

var utf8BOM = []byte("\xef\xbb\xbf")

func readCSV(path, table string) ([]byte, *Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &SourceError{Path: path, Err: err}
	}
	rows, err := gocsv.CSVToMaps(bytes.NewReader(bytes.TrimPrefix(raw, utf8BOM)))
	if err != nil {
		return nil, nil, &SourceError{Path: path, Err: err}
	}
	return raw, tableFromMaps(table, rows), nil
}

// =============================================================================
// STATIC SOURCE
// =============================================================================

// StaticSource serves a fixed in-memory dataset.
type StaticSource struct {
	Name string
	Data reconcile.Dataset
}

func (s *StaticSource) String() string { return "static:" + s.Name }

func (s *StaticSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(s.Data)
	if err != nil {
		return nil, fmt.Errorf("fingerprint static dataset: %w", err)
	}
	return &Dataset{
		Dataset:     s.Data,
		Fingerprint: fingerprint(raw),
		Report: Report{
			PlanRows:     len(s.Data.Plan),
			ActivityRows: len(s.Data.Activities),
		},
		LoadedAt: time.Now().UTC(),
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
