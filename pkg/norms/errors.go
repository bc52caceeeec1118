package norms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError reports a malformed graph or resolve input. It is raised
// before any solving begins and is fatal to that resolution.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "norms validation: " + e.Issues[0]
	}
	return fmt.Sprintf("norms validation: %d issues: %s", len(e.Issues), strings.Join(e.Issues, "; "))
}

// ConvergenceError reports that the iteration cap was exceeded. It carries
// the last quantity vector and the utility with the largest delta so the
// caller can diagnose the divergence. The vector is not authoritative.
type ConvergenceError struct {
	Period          PeriodID
	Iterations      int
	MaxDelta        decimal.Decimal
	MaxDeltaUtility UtilityID
	LastVector      map[UtilityID]decimal.Decimal
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("resolution did not converge after %d iterations (max delta %s at utility %d)",
		e.Iterations, e.MaxDelta.String(), e.MaxDeltaUtility)
}

// CapacityExceededError reports a physical asset whose resolved quantity
// exceeds capacity x operational hours. The converged result is attached for
// diagnostics but must not be treated as authoritative.
type CapacityExceededError struct {
	Period    PeriodID
	AssetID   AssetID
	AssetName string
	UtilityID UtilityID
	Resolved  decimal.Decimal
	Capacity  decimal.Decimal
	Shortfall decimal.Decimal
	Result    *Result
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("asset %s: resolved %s exceeds capacity %s (shortfall %s)",
		e.AssetName, e.Resolved.String(), e.Capacity.String(), e.Shortfall.String())
}

// WarningKind classifies a non-fatal diagnostic attached to a result.
type WarningKind int

const (
	// WarnMissingAvailability: an asset participates in distribution but has
	// no availability record for the period; treated as unavailable.
	WarnMissingAvailability WarningKind = iota
	// WarnNegativeRequirement: credits drove a net requirement below zero;
	// clamped to zero for propagation.
	WarnNegativeRequirement
	// WarnRedundantResidual: a residual DISTRIBUTION factor derived to zero
	// because the known factors already sum to one.
	WarnRedundantResidual
	// WarnNoAvailableSupplier: every distribution supplier of a consumer was
	// unavailable; that consumer's demand could not be placed this period.
	WarnNoAvailableSupplier
)

func (k WarningKind) String() string {
	switch k {
	case WarnMissingAvailability:
		return "MissingAvailability"
	case WarnNegativeRequirement:
		return "NegativeRequirement"
	case WarnRedundantResidual:
		return "RedundantResidual"
	case WarnNoAvailableSupplier:
		return "NoAvailableSupplier"
	default:
		return "Unknown"
	}
}

// MarshalJSON renders the kind by name so reports stay readable.
func (k WarningKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Warning is a reportable, non-fatal condition observed during resolution.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	UtilityID UtilityID   `json:"utility_id,omitempty"`
	AssetID   AssetID     `json:"asset_id,omitempty"`
	Detail    string      `json:"detail"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Detail)
}
