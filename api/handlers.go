/*
handlers.go - HTTP API handlers for the KOL dashboard

PURPOSE:
  Exposes the reconciled dashboard and its derived views as JSON. Handlers
  resolve the as-of date, ask the dashboard service for a Result, and
  project it through the insights package.

ENDPOINTS:
  Dashboard:
    GET  /api/dashboard               Reconciled rows + diagnostics
    GET  /api/dashboard.csv           Same rows as CSV
    GET  /api/entities                Entity masters
    GET  /api/kpis                    Headline numbers
    GET  /api/trend                   Mean pacing per month end

  Charts:
    GET  /api/charts/monthly-activity Logged activities per month
    GET  /api/charts/regions          Target volume per region
    GET  /api/charts/status           Row count per status
    GET  /api/delayed                 Unfinished rows, worst pacing first
    GET  /api/map                     Entities with coordinates
    GET  /api/calendar                Activity events of the as-of month

  Lookup:
    GET  /api/profiles                Entity names
    GET  /api/profiles/{name}         One entity's rows
    GET  /api/activities              Raw activity log (?region=, ?month=)
    GET  /api/activities/regions      Region filter options

  Operations:
    GET  /health
    GET  /api/snapshots               Stored snapshots
    GET  /api/loads                   Load history (?limit=)
    GET  /api/diagnostics             Engine diagnostics + ingest report
    POST /api/reload                  Reload the source now

AS-OF SELECTION:
  ?as_of=YYYY-MM-DD wins over ?month=<name> (last day of that month). With
  neither, the configured default month is used. The date must fall inside
  the reporting year.

ERROR HANDLING:
  Errors are returned as JSON {"error", "details"} with status:
  - 503: no dataset could be loaded
  - 400: malformed or out-of-range as-of, unknown month
  - 404: unknown entity
  - 500: anything else

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
  - dashboard/service.go: caching and reloads
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/warp/kol-dashboard/dashboard"
	"github.com/warp/kol-dashboard/insights"
	"github.com/warp/kol-dashboard/reconcile"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service          *dashboard.Service
	DefaultMonth     string
	ExpiryWindowDays int

	logger *zap.Logger
}

// NewHandler creates a handler serving svc.
func NewHandler(svc *dashboard.Service, defaultMonth string, expiryWindowDays int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:          svc,
		DefaultMonth:     defaultMonth,
		ExpiryWindowDays: expiryWindowDays,
		logger:           logger,
	}
}

// asOf resolves the as-of date of r.
func (h *Handler) asOf(r *http.Request) (reconcile.Date, error) {
	q := r.URL.Query()
	if s := q.Get("as_of"); s != "" {
		d, err := reconcile.ParseDate(s)
		if err != nil {
			return reconcile.Date{}, err
		}
		return d, h.Service.Engine.ValidateAsOf(d)
	}
	month := q.Get("month")
	if month == "" {
		month = h.DefaultMonth
	}
	d, err := reconcile.MonthEnd(h.Service.Year(), month)
	if err != nil {
		return reconcile.Date{}, err
	}
	return d, h.Service.Engine.ValidateAsOf(d)
}

// result computes the dashboard for r, writing the error response itself
// when it fails.
func (h *Handler) result(w http.ResponseWriter, r *http.Request) (*reconcile.Result, bool) {
	asOf, err := h.asOf(r)
	if err != nil {
		h.fail(w, r, "Invalid as-of date", err)
		return nil, false
	}
	res, err := h.Service.ComputeAt(r.Context(), asOf)
	if err != nil {
		h.fail(w, r, "Failed to compute dashboard", err)
		return nil, false
	}
	return res, true
}

// activities returns the raw activity log of the current dataset.
func (h *Handler) activities(w http.ResponseWriter, r *http.Request) ([]reconcile.ActivityRecord, bool) {
	ds, err := h.Service.Dataset()
	if err != nil {
		h.fail(w, r, "Activity log unavailable", err)
		return nil, false
	}
	return ds.Activities, true
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetDashboard returns every reconciled row.
// GET /api/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DashboardResponse{
		AsOf:        res.AsOf.String(),
		Year:        res.Year,
		Rows:        toRowDTOs(res.Rows),
		Diagnostics: res.Diagnostics,
	})
}

// ExportDashboard returns the rows as a CSV attachment.
// GET /api/dashboard.csv
func (h *Handler) ExportDashboard(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	data, err := gocsv.MarshalBytes(ToRowCSVs(res.Rows))
	if err != nil {
		h.fail(w, r, "Failed to encode CSV", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="kol-dashboard-`+res.AsOf.String()+`.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ListEntities returns the entity masters.
// GET /api/entities
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEntityDTOs(res.Masters))
}

// GetKPIs returns the headline numbers. Average pacing comes from the trend
// so both views agree.
// GET /api/kpis
func (h *Handler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	trend, err := h.Service.Trend(r.Context(), res.AsOf)
	if err != nil {
		h.fail(w, r, "Failed to compute trend", err)
		return
	}
	k := insights.ComputeKPIs(res, trend, h.ExpiryWindowDays)
	writeJSON(w, http.StatusOK, toKPIDTO(k, h.ExpiryWindowDays))
}

// GetTrend returns one point per month of the reporting year.
// GET /api/trend
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		h.fail(w, r, "Invalid as-of date", err)
		return
	}
	points, err := h.Service.Trend(r.Context(), asOf)
	if err != nil {
		h.fail(w, r, "Failed to compute trend", err)
		return
	}
	writeJSON(w, http.StatusOK, TrendResponse{AsOf: asOf.String(), Points: toTrendDTOs(points)})
}

// =============================================================================
// CHART HANDLERS
// =============================================================================

// GET /api/charts/monthly-activity
func (h *Handler) GetMonthlyActivity(w http.ResponseWriter, r *http.Request) {
	acts, ok := h.activities(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, insights.MonthlyVolume(acts))
}

// GET /api/charts/regions
func (h *Handler) GetRegions(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(insights.Regions(res.Rows)))
}

// GET /api/charts/status
func (h *Handler) GetStatusBreakdown(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(insights.StatusBreakdown(res.Rows)))
}

// GET /api/delayed
func (h *Handler) ListDelayed(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRowDTOs(insights.DelayedTasks(res.Rows)))
}

// GET /api/map
func (h *Handler) GetMap(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(insights.MapPoints(res.Masters)))
}

// GetCalendar returns the events of the as-of month.
// GET /api/calendar
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	acts, ok := h.activities(w, r)
	if !ok {
		return
	}
	events, err := insights.Calendar(res, acts, reconcile.MonthName(res.AsOf.Month()))
	if err != nil {
		h.fail(w, r, "Failed to build calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

// =============================================================================
// LOOKUP HANDLERS
// =============================================================================

// GET /api/profiles
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(insights.Names(res.Rows)))
}

// GET /api/profiles/{name}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	p, err := insights.FindProfile(res.Rows, chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, "Profile not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

// ListActivities filters the raw activity log. Here ?month is a filter on
// the tracking month, not an as-of selector.
// GET /api/activities
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	acts, ok := h.activities(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := insights.ActivityFilter{Region: q.Get("region"), Month: q.Get("month")}
	writeJSON(w, http.StatusOK, toActivityDTOs(insights.ActivityLog(acts, f)))
}

// GET /api/activities/regions
func (h *Handler) ListActivityRegions(w http.ResponseWriter, r *http.Request) {
	acts, ok := h.activities(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, append([]string{insights.All}, insights.ActivityRegions(acts)...))
}

// =============================================================================
// OPERATIONS HANDLERS
// =============================================================================

// Health reports whether a dataset is loaded. It answers 200 either way so
// that the process stays up while the source is broken.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthDTO{Status: "ok", Source: h.Service.Source.String()}
	ds, err := h.Service.Dataset()
	if err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
	} else {
		resp.Loaded = true
		resp.Fingerprint = ds.Fingerprint
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/snapshots
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Service.Snapshots(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list snapshots", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(infos))
}

// GET /api/loads
func (h *Handler) ListLoads(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Service.Loads(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "Failed to list loads", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(runs))
}

// GET /api/diagnostics
func (h *Handler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	ds, err := h.Service.Dataset()
	if err != nil {
		h.fail(w, r, "Dataset unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, DiagnosticsResponse{
		AsOf:        res.AsOf.String(),
		Fingerprint: ds.Fingerprint,
		LoadedAt:    ds.LoadedAt,
		Ingest:      ds.Report,
		Diagnostics: res.Diagnostics,
	})
}

// Reload loads the source now and returns the recorded run.
// POST /api/reload
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	run, err := h.Service.Reload(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), run)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// =============================================================================
// HELPERS
// =============================================================================

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case reconcile.IsClientError(err):
		return http.StatusBadRequest
	case reconcile.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// nonNil keeps empty lists as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
