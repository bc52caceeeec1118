package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/plantops/utilbalance/pkg/norms"
)

// Write renders period reports in the requested format.
func Write(w io.Writer, reports []*norms.PeriodReport, format string) error {
	switch format {
	case "text":
		return writeText(w, reports)
	case "json":
		return writeJSON(w, reports)
	case "csv":
		return writeCSV(w, reports)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeText(w io.Writer, reports []*norms.PeriodReport) error {
	for _, report := range reports {
		if report == nil {
			continue
		}
		fmt.Fprintf(w, "Period %d (converged in %d iterations)\n", report.Period, report.Iterations)
		fmt.Fprintf(w, "%-20s %-8s %14s %14s %14s %12s %10s\n",
			"Utility", "UOM", "Process", "Fixed", "Resolved", "Norm", "Dev %")
		fmt.Fprintf(w, "%-20s %-8s %14s %14s %14s %12s %10s\n",
			"--------------------", "--------", "--------------", "--------------", "--------------", "------------", "----------")

		for _, row := range report.Rows {
			norm, dev := "-", "-"
			if row.DerivedNorm != nil {
				norm = row.DerivedNorm.StringFixed(6)
			}
			if row.DeviationPct != nil {
				dev = row.DeviationPct.StringFixed(2)
			}
			fmt.Fprintf(w, "%-20s %-8s %14s %14s %14s %12s %10s\n",
				row.Code, row.UOM,
				row.Process.StringFixed(3), row.Fixed.StringFixed(3), row.Resolved.StringFixed(3),
				norm, dev)
		}

		if len(report.Warnings) > 0 {
			fmt.Fprintf(w, "\nWarnings:\n")
			for _, warning := range report.Warnings {
				fmt.Fprintf(w, "  - %s\n", warning)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeJSON(w io.Writer, reports []*norms.PeriodReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func writeCSV(w io.Writer, reports []*norms.PeriodReport) error {
	cw := csv.NewWriter(w)
	header := []string{"period_id", "utility_id", "utility_code", "uom", "process_qty", "fixed_qty", "resolved_qty", "derived_norm", "deviation_pct"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, report := range reports {
		if report == nil {
			continue
		}
		for _, row := range report.Rows {
			norm, dev := "", ""
			if row.DerivedNorm != nil {
				norm = row.DerivedNorm.String()
			}
			if row.DeviationPct != nil {
				dev = row.DeviationPct.String()
			}
			record := []string{
				fmt.Sprintf("%d", report.Period),
				fmt.Sprintf("%d", row.UtilityID),
				row.Code,
				row.UOM,
				row.Process.String(),
				row.Fixed.String(),
				row.Resolved.String(),
				norm,
				dev,
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
