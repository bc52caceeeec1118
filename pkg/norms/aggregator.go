package norms

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ReferenceNorm is a benchmark for one utility: the expected quantity per
// unit of the driver utility's resolved quantity. Where present, the
// aggregator reports the percentage deviation of the derived norm from it.
type ReferenceNorm struct {
	DriverUtilityID UtilityID
	Norm            decimal.Decimal
}

// ReportRow is the reportable per-utility breakdown.
type ReportRow struct {
	UtilityID UtilityID       `json:"utility_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	UOM       string          `json:"uom"`
	Process   decimal.Decimal `json:"process"`
	Fixed     decimal.Decimal `json:"fixed"`
	Resolved  decimal.Decimal `json:"resolved"`
	// DerivedNorm is resolved quantity per unit of the reference driver's
	// resolved quantity; nil when no reference norm exists for the utility.
	DerivedNorm  *decimal.Decimal `json:"derived_norm,omitempty"`
	DeviationPct *decimal.Decimal `json:"deviation_pct,omitempty"`
}

// PeriodReport is the aggregated output of one resolution, formatted for the
// presentation layer. The core discards the underlying result after this.
type PeriodReport struct {
	Period     PeriodID    `json:"period"`
	Rows       []ReportRow `json:"rows"`
	Warnings   []Warning   `json:"warnings,omitempty"`
	Iterations int         `json:"iterations"`
}

// Aggregate combines the demand snapshot and the resolver's output into a
// per-utility report, rows ordered by utility code. Reference norms are
// optional and used purely for downstream reporting.
func Aggregate(g *NormsGraph, demand map[UtilityID]DemandRecord, res *Result, refs map[UtilityID]ReferenceNorm) *PeriodReport {
	report := &PeriodReport{
		Period:     res.Period,
		Rows:       make([]ReportRow, 0, g.Len()),
		Warnings:   res.Warnings,
		Iterations: res.Iterations,
	}
	hundred := decimal.NewFromInt(100)

	for i := range g.utilities {
		u := g.utilities[i]
		row := ReportRow{
			UtilityID: u.ID,
			Code:      u.Code,
			Name:      u.Name,
			UOM:       u.UOM,
			Resolved:  res.Quantity(u.ID),
		}
		if d, ok := demand[u.ID]; ok {
			row.Process = d.Process
			row.Fixed = d.Fixed
		}
		if ref, ok := refs[u.ID]; ok {
			driverQty := res.Quantity(ref.DriverUtilityID)
			if driverQty.Sign() > 0 {
				derived := row.Resolved.Div(driverQty)
				row.DerivedNorm = &derived
				if ref.Norm.Sign() != 0 {
					dev := derived.Sub(ref.Norm).Div(ref.Norm).Mul(hundred)
					row.DeviationPct = &dev
				}
			}
		}
		report.Rows = append(report.Rows, row)
	}

	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].Code < report.Rows[j].Code
	})
	return report
}
