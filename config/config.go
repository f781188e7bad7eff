/*
Package config loads the server configuration from YAML.

FILE FORMAT:
  server:
    port: 8080
    allowed_origins: ["http://localhost:5173"]
  source:
    format: xlsx            # xlsx | csv | sample
    path: "(KOL) DATA.xlsx"
    contract_sheet: contracts
    tracking_sheet: tracking
    contracts_csv: ""
    tracking_csv: ""
    reload_interval: 10m    # 0s disables the watcher
  report:
    year: 2025
    default_month: November
    expiry_window_days: 30
    trend_workers: 4
  store:
    path: kol.db            # ":memory:" selects the in-memory store
  log:
    level: info
    development: false
  aliases:
    entity_id: ["KOL No."]

A missing file yields Default(). Command-line flags override file values.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/kol-dashboard/reconcile"
)

// Source formats.
const (
	FormatXLSX   = "xlsx"
	FormatCSV    = "csv"
	FormatSample = "sample"
)

// MemoryStore selects the in-memory snapshot store.
const MemoryStore = ":memory:"

type Config struct {
	Server  ServerConfig        `yaml:"server"`
	Source  SourceConfig        `yaml:"source"`
	Report  ReportConfig        `yaml:"report"`
	Store   StoreConfig         `yaml:"store"`
	Log     LogConfig           `yaml:"log"`
	Aliases map[string][]string `yaml:"aliases"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type SourceConfig struct {
	Format         string        `yaml:"format"`
	Path           string        `yaml:"path"`
	ContractSheet  string        `yaml:"contract_sheet"`
	TrackingSheet  string        `yaml:"tracking_sheet"`
	ContractsCSV   string        `yaml:"contracts_csv"`
	TrackingCSV    string        `yaml:"tracking_csv"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

type ReportConfig struct {
	Year             int    `yaml:"year"`
	DefaultMonth     string `yaml:"default_month"`
	ExpiryWindowDays int    `yaml:"expiry_window_days"`
	TrendWorkers     int    `yaml:"trend_workers"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Source: SourceConfig{
			Format:         FormatSample,
			ContractSheet:  "contracts",
			TrackingSheet:  "tracking",
			ReloadInterval: 10 * time.Minute,
		},
		Report: ReportConfig{
			Year:             2025,
			DefaultMonth:     "November",
			ExpiryWindowDays: 30,
			TrendWorkers:     4,
		},
		Store: StoreConfig{Path: "kol.db"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads path over Default(). An empty path or a missing file is not an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("load config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Source.Format {
	case FormatXLSX:
		if c.Source.Path == "" {
			errs = append(errs, errors.New("source.path is required for xlsx"))
		}
	case FormatCSV:
		if c.Source.ContractsCSV == "" || c.Source.TrackingCSV == "" {
			errs = append(errs, errors.New("source.contracts_csv and source.tracking_csv are required for csv"))
		}
	case FormatSample:
	default:
		errs = append(errs, fmt.Errorf("source.format %q must be one of xlsx, csv, sample", c.Source.Format))
	}
	if c.Source.ReloadInterval < 0 {
		errs = append(errs, errors.New("source.reload_interval must not be negative"))
	}
	if c.Report.Year < 1900 || c.Report.Year > 9999 {
		errs = append(errs, fmt.Errorf("report.year %d out of range", c.Report.Year))
	}
	if _, ok := reconcile.MonthNumber(c.Report.DefaultMonth); !ok {
		errs = append(errs, fmt.Errorf("report.default_month %q must be one of %s",
			c.Report.DefaultMonth, strings.Join(reconcile.MonthNames, ", ")))
	}
	if c.Report.ExpiryWindowDays < 0 {
		errs = append(errs, errors.New("report.expiry_window_days must not be negative"))
	}
	if c.Report.TrendWorkers < 0 {
		errs = append(errs, errors.New("report.trend_workers must not be negative"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}
