/*
main.go - Application entry point

PURPOSE:
  Starts the KOL dashboard server, or prints one report from the command
  line. Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  serve              HTTP API with periodic source reloads (default)
  report             Print the dashboard at one as-of date (json | csv)
  trend              Print the monthly pacing trend

STARTUP SEQUENCE:
  1. Load YAML config, then apply command-line flags
  2. Build the zap logger
  3. Open the snapshot store (SQLite, or memory for ":memory:")
  4. Load the source once
  5. Serve, reloading on every watcher tick

COMMON FLAGS:
  --config     YAML config path (default: kol.yaml, optional)
  --port       HTTP server port
  --db         SQLite database path, ":memory:" for in-memory
  --source     "sample", a .xlsx workbook, or "contracts.csv,tracking.csv"
  --year       Reporting year
  --log-level  debug | info | warn | error

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the source watcher
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the store

EXAMPLES:
  ./server serve --source "(KOL) DATA.xlsx" --db ./data/kol.db
  ./server report --month August --format csv > august.csv
  ./server trend --month November --source sample

SEE ALSO:
  - config/config.go: File format
  - api/server.go: Router configuration
  - dashboard/service.go: Caching and reloads
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/kol-dashboard/api"
	"github.com/warp/kol-dashboard/config"
	"github.com/warp/kol-dashboard/dashboard"
	"github.com/warp/kol-dashboard/ingest"
	"github.com/warp/kol-dashboard/logging"
	"github.com/warp/kol-dashboard/reconcile"
	"github.com/warp/kol-dashboard/store/memory"
	"github.com/warp/kol-dashboard/store/sqlite"
)

// flags shared by every command
var (
	configPath string
	port       int
	dbPath     string
	sourceArg  string
	year       int
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "KOL contract pacing dashboard",
	Long: `Reconciles contracted KOL tasks against the activity tracking log
and serves pacing, status and gap per entity and task.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "kol.yaml", "YAML config file (optional)")
	pf.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	pf.StringVar(&dbPath, "db", "", `SQLite database path, ":memory:" for in-memory`)
	pf.StringVar(&sourceArg, "source", "", `"sample", a .xlsx path, or "contracts.csv,tracking.csv"`)
	pf.IntVar(&year, "year", 0, "reporting year (overrides config)")
	pf.StringVar(&logLevel, "log-level", "", "debug | info | warn | error")

	rootCmd.AddCommand(serveCmd, reportCmd, trendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// =============================================================================
// WIRING
// =============================================================================

type closableStore interface {
	reconcile.Store
	Close() error
}

// app is everything a command needs, built from config and flags.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   closableStore
	service *dashboard.Service
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	if err := logging.Sync(a.logger); err != nil {
		fmt.Fprintf(os.Stderr, "flush logger: %v\n", err)
	}
}

// loadConfig reads the config file and applies the flags on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if year != 0 {
		cfg.Report.Year = year
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if sourceArg != "" {
		applySourceFlag(&cfg.Source, sourceArg)
	}
	return cfg, cfg.Validate()
}

func applySourceFlag(src *config.SourceConfig, arg string) {
	switch {
	case arg == config.FormatSample:
		src.Format = config.FormatSample
	case strings.Contains(arg, ","):
		parts := strings.SplitN(arg, ",", 2)
		src.Format = config.FormatCSV
		src.ContractsCSV = strings.TrimSpace(parts[0])
		src.TrackingCSV = strings.TrimSpace(parts[1])
	default:
		src.Format = config.FormatXLSX
		src.Path = arg
	}
}

func newSource(cfg config.Config) ingest.Source {
	aliases := ingest.DefaultAliases().Merge(cfg.Aliases)
	switch cfg.Source.Format {
	case config.FormatXLSX:
		return &ingest.WorkbookSource{
			Path:          cfg.Source.Path,
			ContractSheet: cfg.Source.ContractSheet,
			TrackingSheet: cfg.Source.TrackingSheet,
			Aliases:       aliases,
		}
	case config.FormatCSV:
		return &ingest.CSVSource{
			ContractsPath: cfg.Source.ContractsCSV,
			TrackingPath:  cfg.Source.TrackingCSV,
			Aliases:       aliases,
		}
	default:
		return ingest.NewSampleSource(cfg.Report.Year)
	}
}

func newStore(path string) (closableStore, error) {
	if path == config.MemoryStore {
		return memory.New(), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return sqlite.New(path)
}

// newApp wires the service and performs the first load. A failed first
// load is returned only when requireData is set; the server keeps running
// and answers 503 until the source becomes readable.
func newApp(ctx context.Context, requireData bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	store, err := newStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	svc := dashboard.New(newSource(cfg), reconcile.NewEngine(cfg.Report.Year), store, logger)
	svc.TrendWorkers = cfg.Report.TrendWorkers

	a := &app{cfg: cfg, logger: logger, store: store, service: svc}
	if _, err := svc.Reload(ctx); err != nil && requireData {
		a.Close()
		return nil, err
	}
	return a, nil
}

// =============================================================================
// SERVE
// =============================================================================

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewHandler(a.service, a.cfg.Report.DefaultMonth, a.cfg.Report.ExpiryWindowDays, a.logger)
	router := api.NewRouter(handler, a.cfg.Server.AllowedOrigins)

	watcher := api.NewSourceWatcher(a.service, a.cfg.Source.ReloadInterval, a.logger)
	watcher.Start()
	defer watcher.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			zap.Int("port", a.cfg.Server.Port),
			zap.String("source", a.service.Source.String()),
			zap.Int("year", a.cfg.Report.Year))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	a.logger.Info("shutting down server")
	watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}
