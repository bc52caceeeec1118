package norms

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultMonthlyHours is the operational-hours default for assets flagged
// always-available (STG, PRDS) when no record overrides it.
var DefaultMonthlyHours = decimal.NewFromInt(720)

// AvailabilityView is the read-only per-period availability lookup consumed
// by the resolver. An HRSG mirrors its linked power-generation asset's
// record for the period. Assets flagged always-available default to 720
// monthly hours unless a record overrides them. A bound asset with no
// record is treated as unavailable and reported as a warning.
type AvailabilityView struct {
	assets    map[AssetID]SteamAsset
	records   map[AssetID]AvailabilityRecord
	byUtility map[UtilityID]AssetID
	warnings  []Warning
}

// NewAvailabilityView assembles the view from the period's snapshot slices.
// bindings maps each asset-backed utility to its physical asset.
func NewAvailabilityView(assets []SteamAsset, records []AvailabilityRecord, bindings map[UtilityID]AssetID) *AvailabilityView {
	v := &AvailabilityView{
		assets:    make(map[AssetID]SteamAsset, len(assets)),
		records:   make(map[AssetID]AvailabilityRecord, len(records)),
		byUtility: make(map[UtilityID]AssetID, len(bindings)),
	}
	for _, a := range assets {
		v.assets[a.ID] = a
	}
	for _, r := range records {
		v.records[r.AssetID] = r
	}
	for uid, aid := range bindings {
		v.byUtility[uid] = aid
	}

	// Surface missing records up front so the warning reaches the result
	// even when the asset is never consulted mid-pass.
	for _, a := range assets {
		if _, ok := v.effectiveRecord(a); !ok {
			v.warnings = append(v.warnings, Warning{
				Kind:    WarnMissingAvailability,
				AssetID: a.ID,
				Detail:  fmt.Sprintf("asset %s has no availability record for the period, treated as unavailable", a.Name),
			})
		}
	}
	return v
}

// effectiveRecord resolves the record governing an asset: the linked power
// asset's record for an HRSG, the asset's own record otherwise, falling back
// to the always-available default.
func (v *AvailabilityView) effectiveRecord(a SteamAsset) (AvailabilityRecord, bool) {
	if a.Type == HRSG && a.LinkedPowerAssetID != nil {
		r, ok := v.records[*a.LinkedPowerAssetID]
		return r, ok
	}
	if r, ok := v.records[a.ID]; ok {
		return r, true
	}
	if a.IsAlwaysAvailable {
		return AvailabilityRecord{AssetID: a.ID, Available: true, OperationalHours: DefaultMonthlyHours}, true
	}
	return AvailabilityRecord{}, false
}

// IsAvailable reports whether the asset is available for the period. Power
// assets (known only through their availability records) answer from the
// record directly; assets without a governing record are unavailable.
func (v *AvailabilityView) IsAvailable(id AssetID) bool {
	if a, ok := v.assets[id]; ok {
		r, ok := v.effectiveRecord(a)
		return ok && r.Available
	}
	r, ok := v.records[id]
	return ok && r.Available
}

// OperationalHours returns the asset's operational hours for the period,
// zero when unavailable.
func (v *AvailabilityView) OperationalHours(id AssetID) decimal.Decimal {
	var r AvailabilityRecord
	var ok bool
	if a, known := v.assets[id]; known {
		r, ok = v.effectiveRecord(a)
	} else {
		r, ok = v.records[id]
	}
	if !ok || !r.Available {
		return decimal.Zero
	}
	return r.OperationalHours
}

// BoundAsset returns the id of the asset backing a utility, if any. The
// asset may be a power asset known only through availability records and
// coefficients.
func (v *AvailabilityView) BoundAsset(id UtilityID) (AssetID, bool) {
	aid, ok := v.byUtility[id]
	return aid, ok
}

// AssetForUtility returns the steam asset backing a utility. Utilities bound
// to power assets report false: capacity bounds exist for steam assets only.
func (v *AvailabilityView) AssetForUtility(id UtilityID) (SteamAsset, bool) {
	aid, ok := v.byUtility[id]
	if !ok {
		return SteamAsset{}, false
	}
	a, ok := v.assets[aid]
	return a, ok
}

// UtilityAvailable reports whether a supplier utility can receive a share
// this period. Utilities not backed by an asset are always available.
func (v *AvailabilityView) UtilityAvailable(id UtilityID) bool {
	aid, ok := v.byUtility[id]
	if !ok {
		return true
	}
	return v.IsAvailable(aid)
}

// Warnings returns missing-record diagnostics observed at construction.
func (v *AvailabilityView) Warnings() []Warning { return v.warnings }
