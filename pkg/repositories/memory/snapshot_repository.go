package memory

import (
	"context"
	"fmt"

	"github.com/plantops/utilbalance/pkg/norms"
)

// SnapshotRepository assembles an in-memory snapshot. It is the loader used
// by tests and by callers that build their master data programmatically.
type SnapshotRepository struct {
	snapshot norms.Snapshot
}

// NewSnapshotRepository creates an empty in-memory repository.
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{
		snapshot: norms.Snapshot{
			Bindings:     make(map[norms.UtilityID]norms.AssetID),
			Demand:       make(map[norms.PeriodID]map[norms.UtilityID]norms.DemandRecord),
			Availability: make(map[norms.PeriodID][]norms.AvailabilityRecord),
			Coefficients: make(map[norms.PeriodID]map[norms.AssetID]norms.AssetCoefficients),
		},
	}
}

// AddPlant adds a plant master row.
func (r *SnapshotRepository) AddPlant(p norms.Plant) {
	r.snapshot.Plants = append(r.snapshot.Plants, p)
}

// AddAccountType adds an account type master row.
func (r *SnapshotRepository) AddAccountType(a norms.AccountType) {
	r.snapshot.AccountTypes = append(r.snapshot.AccountTypes, a)
}

// AddUtility adds a utility master row.
func (r *SnapshotRepository) AddUtility(u norms.Utility) {
	r.snapshot.Utilities = append(r.snapshot.Utilities, u)
}

// AddEdge adds a norm edge. Edge order is preserved; it determines the
// position of the residual share within a consumer's supplier list.
func (r *SnapshotRepository) AddEdge(e norms.NormEdge) {
	r.snapshot.Edges = append(r.snapshot.Edges, e)
}

// AddAsset adds a steam generation asset.
func (r *SnapshotRepository) AddAsset(a norms.SteamAsset) {
	r.snapshot.Assets = append(r.snapshot.Assets, a)
}

// BindAsset maps a utility to the physical asset backing it.
func (r *SnapshotRepository) BindAsset(utility norms.UtilityID, asset norms.AssetID) {
	r.snapshot.Bindings[utility] = asset
}

// SetDemand records seed demand for a utility in a period.
func (r *SnapshotRepository) SetDemand(period norms.PeriodID, d norms.DemandRecord) {
	if r.snapshot.Demand[period] == nil {
		r.snapshot.Demand[period] = make(map[norms.UtilityID]norms.DemandRecord)
	}
	r.snapshot.Demand[period][d.UtilityID] = d
}

// SetAvailability records an asset's availability for a period.
func (r *SnapshotRepository) SetAvailability(period norms.PeriodID, rec norms.AvailabilityRecord) {
	r.snapshot.Availability[period] = append(r.snapshot.Availability[period], rec)
}

// SetCoefficients records an asset's physical coefficients for a period.
func (r *SnapshotRepository) SetCoefficients(period norms.PeriodID, asset norms.AssetID, c norms.AssetCoefficients) {
	if r.snapshot.Coefficients[period] == nil {
		r.snapshot.Coefficients[period] = make(map[norms.AssetID]norms.AssetCoefficients)
	}
	r.snapshot.Coefficients[period][asset] = c
}

// LoadSnapshot returns the assembled snapshot. The repository must not be
// mutated while resolutions against the snapshot are in flight.
func (r *SnapshotRepository) LoadSnapshot(_ context.Context) (*norms.Snapshot, error) {
	if len(r.snapshot.Utilities) == 0 {
		return nil, fmt.Errorf("snapshot has no utilities")
	}
	snap := r.snapshot
	return &snap, nil
}
