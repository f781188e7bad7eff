package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/warp/kol-dashboard/api"
	"github.com/warp/kol-dashboard/reconcile"
)

var (
	reportMonth  string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the reconciled dashboard at one month end",
	Long: `Loads the source once, reconciles it as of the last day of --month and
prints every row. JSON output also carries the diagnostics.`,
	RunE: runReport,
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Print mean active pacing at every month end up to --month",
	RunE:  runTrend,
}

func init() {
	reportCmd.Flags().StringVar(&reportMonth, "month", "", "month name (default: report.default_month)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "json | csv")
	trendCmd.Flags().StringVar(&reportMonth, "month", "", "month name (default: report.default_month)")
}

func monthEnd(a *app) (reconcile.Date, error) {
	month := reportMonth
	if month == "" {
		month = a.cfg.Report.DefaultMonth
	}
	return reconcile.MonthEnd(a.cfg.Report.Year, month)
}

func runReport(cmd *cobra.Command, _ []string) error {
	if reportFormat != "json" && reportFormat != "csv" {
		return fmt.Errorf("unknown --format %q (json | csv)", reportFormat)
	}
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	asOf, err := monthEnd(a)
	if err != nil {
		return err
	}
	res, err := a.service.ComputeAt(cmd.Context(), asOf)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportFormat == "csv" {
		data, err := gocsv.MarshalBytes(api.ToRowCSVs(res.Rows))
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}
	return writeIndented(out, res)
}

func runTrend(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	asOf, err := monthEnd(a)
	if err != nil {
		return err
	}
	points, err := a.service.Trend(cmd.Context(), asOf)
	if err != nil {
		return err
	}
	return writeIndented(cmd.OutOrStdout(), points)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
