package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/kol-dashboard/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
source:
  format: csv
  contracts_csv: data/contracts.csv
  tracking_csv: data/tracking.csv
  reload_interval: 30s
report:
  default_month: Mar
aliases:
  entity_id: ["KOL No."]
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, config.FormatCSV, cfg.Source.Format)
	assert.Equal(t, 30*time.Second, cfg.Source.ReloadInterval)
	assert.Equal(t, "Mar", cfg.Report.DefaultMonth)
	assert.Equal(t, 2025, cfg.Report.Year, "unset keys keep their default")
	assert.Equal(t, "contracts", cfg.Source.ContractSheet)
	assert.Equal(t, []string{"KOL No."}, cfg.Aliases["entity_id"])
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := config.Load(writeConfig(t, "server: [port"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		errMsg string
	}{
		{"unknown format", func(c *config.Config) { c.Source.Format = "parquet" }, "source.format"},
		{"xlsx without path", func(c *config.Config) { c.Source.Format = config.FormatXLSX }, "source.path"},
		{"csv without files", func(c *config.Config) { c.Source.Format = config.FormatCSV }, "contracts_csv"},
		{"year", func(c *config.Config) { c.Report.Year = 99 }, "report.year"},
		{"month spelling", func(c *config.Config) { c.Report.DefaultMonth = "Nov" }, "report.default_month"},
		{"window", func(c *config.Config) { c.Report.ExpiryWindowDays = -1 }, "expiry_window_days"},
		{"workers", func(c *config.Config) { c.Report.TrendWorkers = -2 }, "trend_workers"},
		{"interval", func(c *config.Config) { c.Source.ReloadInterval = -time.Second }, "reload_interval"},
		{"port", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := config.Default()
	cfg.Report.Year = 0
	cfg.Report.TrendWorkers = -1

	err := cfg.Validate()
	assert.ErrorContains(t, err, "report.year")
	assert.ErrorContains(t, err, "trend_workers")
}
