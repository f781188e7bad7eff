/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Logger:     Structured request logging (zap)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /health               Liveness and dataset status
  /api/dashboard*       Reconciled rows and exports
  /api/charts/*         Chart series
  /api/profiles/*       Entity lookups
  /api/activities/*     Raw activity log
  /api/snapshots etc.   Operations

SECURITY NOTE:
  No authentication middleware. All endpoints are read-only except
  POST /api/reload, which only re-reads the configured source.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/dashboard.csv", h.ExportDashboard)
		r.Get("/entities", h.ListEntities)
		r.Get("/kpis", h.GetKPIs)
		r.Get("/trend", h.GetTrend)

		r.Route("/charts", func(r chi.Router) {
			r.Get("/monthly-activity", h.GetMonthlyActivity)
			r.Get("/regions", h.GetRegions)
			r.Get("/status", h.GetStatusBreakdown)
		})
		r.Get("/delayed", h.ListDelayed)
		r.Get("/map", h.GetMap)
		r.Get("/calendar", h.GetCalendar)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.ListProfiles)
			r.Get("/{name}", h.GetProfile)
		})
		r.Route("/activities", func(r chi.Router) {
			r.Get("/", h.ListActivities)
			r.Get("/regions", h.ListActivityRegions)
		})

		r.Get("/snapshots", h.ListSnapshots)
		r.Get("/loads", h.ListLoads)
		r.Get("/diagnostics", h.GetDiagnostics)
		r.Post("/reload", h.Reload)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>KOL Dashboard</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>KOL Dashboard API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/dashboard">/api/dashboard</a> - Reconciled rows (?month=, ?as_of=)</li>
<li><a href="/api/kpis">/api/kpis</a> - Headline numbers</li>
<li><a href="/api/trend">/api/trend</a> - Pacing trend</li>
<li><a href="/api/delayed">/api/delayed</a> - Unfinished tasks</li>
<li><a href="/api/loads">/api/loads</a> - Load history</li>
</ul>
</body>
</html>`))
	})

	return r
}

// requestLogger logs one line per request once the response is written.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("query", r.URL.RawQuery),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote", r.RemoteAddr))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
