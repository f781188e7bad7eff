/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types carry
  decimals; clients get plain JSON numbers. Dates are YYYY-MM-DD strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Wrappers that add as-of context to a list
  - *CSV: Rows of CSV exports (gocsv struct tags)

SEE ALSO:
  - handlers.go: Uses these types
  - reconcile/types.go: DashboardRow, EntityMaster
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/kol-dashboard/ingest"
	"github.com/warp/kol-dashboard/insights"
	"github.com/warp/kol-dashboard/reconcile"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// =============================================================================
// DASHBOARD
// =============================================================================

// RowDTO is one reconciled (entity, task) row.
type RowDTO struct {
	EntityID           int      `json:"entity_id"`
	Name               string   `json:"name"`
	Region             string   `json:"region"`
	Country            string   `json:"country"`
	ContractStart      string   `json:"contract_start"`
	ContractEnd        string   `json:"contract_end"`
	Lat                *float64 `json:"lat"`
	Lon                *float64 `json:"lon"`
	Task               string   `json:"task"`
	TargetCount        int      `json:"target_count"`
	ActualCount        int      `json:"actual_count"`
	AchievementPercent float64  `json:"achievement_percent"`
	TotalDays          int      `json:"total_days"`
	ElapsedDays        int      `json:"elapsed_days"`
	ElapsedPercent     float64  `json:"elapsed_percent"`
	ExpectedCount      float64  `json:"expected_count"`
	PacingPercent      float64  `json:"pacing_percent"`
	Status             string   `json:"status"`
	Gap                int      `json:"gap"`
}

func toRowDTO(r reconcile.DashboardRow) RowDTO {
	return RowDTO{
		EntityID:           int(r.EntityID),
		Name:               r.Name,
		Region:             r.Region,
		Country:            r.Country,
		ContractStart:      r.ContractStart.String(),
		ContractEnd:        r.ContractEnd.String(),
		Lat:                r.Lat,
		Lon:                r.Lon,
		Task:               string(r.Task),
		TargetCount:        r.TargetCount,
		ActualCount:        r.ActualCount,
		AchievementPercent: num(r.AchievementPercent),
		TotalDays:          r.TotalDays,
		ElapsedDays:        r.ElapsedDays,
		ElapsedPercent:     num(r.ElapsedPercent),
		ExpectedCount:      num(r.ExpectedCount),
		PacingPercent:      num(r.PacingPercent),
		Status:             string(r.Status),
		Gap:                r.Gap,
	}
}

func toRowDTOs(rows []reconcile.DashboardRow) []RowDTO {
	dtos := make([]RowDTO, len(rows))
	for i, r := range rows {
		dtos[i] = toRowDTO(r)
	}
	return dtos
}

// DashboardResponse is the full reconciled table at one as-of date.
type DashboardResponse struct {
	AsOf        string                `json:"as_of"`
	Year        int                   `json:"year"`
	Rows        []RowDTO              `json:"rows"`
	Diagnostics reconcile.Diagnostics `json:"diagnostics"`
}

// RowCSV is one line of the dashboard export. Decimals keep full precision.
type RowCSV struct {
	EntityID           int    `csv:"entity_id"`
	Name               string `csv:"name"`
	Region             string `csv:"region"`
	Country            string `csv:"country"`
	ContractStart      string `csv:"contract_start"`
	ContractEnd        string `csv:"contract_end"`
	Task               string `csv:"task"`
	TargetCount        int    `csv:"target_count"`
	ActualCount        int    `csv:"actual_count"`
	AchievementPercent string `csv:"achievement_percent"`
	TotalDays          int    `csv:"total_days"`
	ElapsedDays        int    `csv:"elapsed_days"`
	ElapsedPercent     string `csv:"elapsed_percent"`
	ExpectedCount      string `csv:"expected_count"`
	PacingPercent      string `csv:"pacing_percent"`
	Status             string `csv:"status"`
	Gap                int    `csv:"gap"`
}

// ToRowCSVs converts rows for export.
func ToRowCSVs(rows []reconcile.DashboardRow) []RowCSV {
	out := make([]RowCSV, len(rows))
	for i, r := range rows {
		out[i] = RowCSV{
			EntityID:           int(r.EntityID),
			Name:               r.Name,
			Region:             r.Region,
			Country:            r.Country,
			ContractStart:      r.ContractStart.String(),
			ContractEnd:        r.ContractEnd.String(),
			Task:               string(r.Task),
			TargetCount:        r.TargetCount,
			ActualCount:        r.ActualCount,
			AchievementPercent: r.AchievementPercent.String(),
			TotalDays:          r.TotalDays,
			ElapsedDays:        r.ElapsedDays,
			ElapsedPercent:     r.ElapsedPercent.String(),
			ExpectedCount:      r.ExpectedCount.String(),
			PacingPercent:      r.PacingPercent.String(),
			Status:             string(r.Status),
			Gap:                r.Gap,
		}
	}
	return out
}

// =============================================================================
// ENTITIES & PROFILES
// =============================================================================

// EntityDTO is one entity master.
type EntityDTO struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Region        string   `json:"region"`
	Country       string   `json:"country"`
	ContractStart string   `json:"contract_start"`
	ContractEnd   string   `json:"contract_end"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
}

func toEntityDTOs(masters []reconcile.EntityMaster) []EntityDTO {
	dtos := make([]EntityDTO, len(masters))
	for i, m := range masters {
		dtos[i] = EntityDTO{
			ID:            int(m.ID),
			Name:          m.Name,
			Region:        m.Region,
			Country:       m.Country,
			ContractStart: m.ContractStart.String(),
			ContractEnd:   m.ContractEnd.String(),
			Lat:           m.Lat,
			Lon:           m.Lon,
		}
	}
	return dtos
}

type ProfileDTO struct {
	EntityID       int      `json:"entity_id"`
	Name           string   `json:"name"`
	Region         string   `json:"region"`
	Country        string   `json:"country"`
	ContractStart  string   `json:"contract_start"`
	ContractEnd    string   `json:"contract_end"`
	ElapsedPercent float64  `json:"elapsed_percent"`
	Rows           []RowDTO `json:"rows"`
}

func toProfileDTO(p *insights.Profile) ProfileDTO {
	return ProfileDTO{
		EntityID:       int(p.EntityID),
		Name:           p.Name,
		Region:         p.Region,
		Country:        p.Country,
		ContractStart:  p.ContractStart.String(),
		ContractEnd:    p.ContractEnd.String(),
		ElapsedPercent: num(p.ElapsedPercent),
		Rows:           toRowDTOs(p.Rows),
	}
}

// =============================================================================
// KPIs & TREND
// =============================================================================

type KPIDTO struct {
	AsOf               string  `json:"as_of"`
	TotalEntities      int     `json:"total_entities"`
	AvgPacing          float64 `json:"avg_pacing"`
	DelayedTasks       int     `json:"delayed_tasks"`
	ExpiringContracts  int     `json:"expiring_contracts"`
	ExpiryWindowDays   int     `json:"expiry_window_days"`
	AchievementPercent float64 `json:"achievement_percent"`
	TotalTarget        int     `json:"total_target"`
	TotalActual        int     `json:"total_actual"`
}

func toKPIDTO(k insights.KPIs, windowDays int) KPIDTO {
	return KPIDTO{
		AsOf:               k.AsOf.String(),
		TotalEntities:      k.TotalEntities,
		AvgPacing:          num(k.AvgPacing),
		DelayedTasks:       k.DelayedTasks,
		ExpiringContracts:  k.ExpiringContracts,
		ExpiryWindowDays:   windowDays,
		AchievementPercent: num(k.AchievementPercent),
		TotalTarget:        k.TotalTarget,
		TotalActual:        k.TotalActual,
	}
}

type TrendPointDTO struct {
	Month      string  `json:"month"`
	ReportDate string  `json:"report_date"`
	Pacing     float64 `json:"pacing"`
	ActiveRows int     `json:"active_rows"`
	Computed   bool    `json:"computed"`
}

type TrendResponse struct {
	AsOf   string          `json:"as_of"`
	Points []TrendPointDTO `json:"points"`
}

func toTrendDTOs(points []reconcile.TrendPoint) []TrendPointDTO {
	dtos := make([]TrendPointDTO, len(points))
	for i, p := range points {
		dtos[i] = TrendPointDTO{
			Month:      p.Month,
			ReportDate: p.ReportDate.String(),
			Pacing:     num(p.Pacing),
			ActiveRows: p.ActiveRows,
			Computed:   p.Computed,
		}
	}
	return dtos
}

// =============================================================================
// ACTIVITIES
// =============================================================================

type ActivityDTO struct {
	EntityID *int   `json:"entity_id"`
	Name     string `json:"name,omitempty"`
	Activity string `json:"activity"`
	Month    string `json:"month"`
	Week     string `json:"week"`
	Region   string `json:"region"`
}

func toActivityDTOs(acts []reconcile.ActivityRecord) []ActivityDTO {
	dtos := make([]ActivityDTO, len(acts))
	for i, a := range acts {
		dtos[i] = ActivityDTO{
			Name:     a.Name,
			Activity: a.Activity,
			Month:    a.Month,
			Week:     a.Week,
			Region:   a.Region,
		}
		if a.EntityID != nil {
			id := int(*a.EntityID)
			dtos[i].EntityID = &id
		}
	}
	return dtos
}

// =============================================================================
// OPERATIONS
// =============================================================================

type HealthDTO struct {
	Status      string `json:"status"`
	Loaded      bool   `json:"loaded"`
	Source      string `json:"source"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error,omitempty"`
}

// DiagnosticsResponse pairs the engine's drop counts with the ingest report
// of the dataset they were computed from.
type DiagnosticsResponse struct {
	AsOf        string                `json:"as_of"`
	Fingerprint string                `json:"fingerprint"`
	LoadedAt    time.Time             `json:"loaded_at"`
	Ingest      ingest.Report         `json:"ingest"`
	Diagnostics reconcile.Diagnostics `json:"diagnostics"`
}
