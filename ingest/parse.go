package ingest

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/kol-dashboard/reconcile"
)

// =============================================================================
// CELL PARSERS
// =============================================================================
//
// Each parser returns (nil, nil) for a blank cell and a non-nil error for a
// cell that has content but cannot be typed. Callers null the field on error.

var errInvalidCell = errors.New("invalid cell")

// dateLayouts are tried in order after the Excel serial form.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006.01.02",
	"2006.1.2",
	"01/02/2006",
	"1/2/2006",
}

// Excel serial day numbers for 1900-01-01 and 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

func parseEntityID(s string) (*reconcile.EntityID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, errInvalidCell
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return nil, errInvalidCell
	}
	return reconcile.ID(int(f)), nil
}

func parseDate(s string) (*reconcile.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(serial) || serial < minExcelSerial || serial > maxExcelSerial {
			return nil, errInvalidCell
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil, errInvalidCell
		}
		d := reconcile.FromTime(t)
		return &d, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := reconcile.FromTime(t)
			return &d, nil
		}
	}
	return nil, errInvalidCell
}

func parseFrequency(s string) (*float64, error) {
	f, err := parseFinite(s)
	if f == nil || err != nil {
		return nil, err
	}
	if *f < 0 {
		return nil, errInvalidCell
	}
	return f, nil
}

func parseCoordinate(s string, limit float64) (*float64, error) {
	f, err := parseFinite(s)
	if f == nil || err != nil {
		return nil, err
	}
	if math.Abs(*f) > limit {
		return nil, errInvalidCell
	}
	return f, nil
}

func parseFinite(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errInvalidCell
	}
	return &f, nil
}
