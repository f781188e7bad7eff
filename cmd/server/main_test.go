package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/kol-dashboard/config"
	"github.com/warp/kol-dashboard/reconcile"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	base := []string{
		"--config", filepath.Join(t.TempDir(), "absent.yaml"),
		"--db", config.MemoryStore,
		"--source", "sample",
		"--log-level", "error",
	}
	rootCmd.SetArgs(append(args, base...))
	rootCmd.SetOut(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestApplySourceFlag(t *testing.T) {
	tests := []struct {
		arg  string
		want config.SourceConfig
	}{
		{"sample", config.SourceConfig{Format: config.FormatSample}},
		{"data/kol.xlsx", config.SourceConfig{Format: config.FormatXLSX, Path: "data/kol.xlsx"}},
		{"c.csv, t.csv", config.SourceConfig{Format: config.FormatCSV, ContractsCSV: "c.csv", TrackingCSV: "t.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			var got config.SourceConfig
			applySourceFlag(&got, tt.arg)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReportCommand_CSV(t *testing.T) {
	out, err := execute(t, "report", "--month", "Mar", "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[0], "entity_id,"))
}

func TestReportCommand_JSON(t *testing.T) {
	out, err := execute(t, "report", "--month", "June", "--format", "json")
	require.NoError(t, err)

	var res reconcile.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "2025-06-30", res.AsOf.String())
	assert.NotEmpty(t, res.Rows)
}

func TestReportCommand_BadInput(t *testing.T) {
	_, err := execute(t, "report", "--month", "Smarch", "--format", "json")
	assert.ErrorIs(t, err, reconcile.ErrUnknownMonth)

	_, err = execute(t, "report", "--month", "June", "--format", "xml")
	assert.ErrorContains(t, err, "unknown --format")
}

func TestTrendCommand(t *testing.T) {
	out, err := execute(t, "trend", "--month", "April")
	require.NoError(t, err)

	var points []reconcile.TrendPoint
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	require.Len(t, points, 12)
	assert.True(t, points[3].Computed)
	assert.False(t, points[4].Computed)
}
