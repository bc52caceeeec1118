package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/plantops/utilbalance/pkg/norms"
)

// Store reads snapshots from the persisted schema (PlantMaster,
// AccountTypeMaster, UtilityMaster, UtilityNorms, SteamGenerationAssets,
// UtilityAssetMapping, SteamRequirement, AssetAvailability,
// AssetCoefficients). The store is strictly read-only: resolutions are never
// written back.
type Store struct {
	pool    *pgxpool.Pool
	periods []norms.PeriodID
}

// NewStore opens a connection pool against the database and scopes the store
// to the given periods (FinancialYearMonthId values).
func NewStore(ctx context.Context, databaseURL string, periods []norms.PeriodID) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Store{pool: pool, periods: periods}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// LoadSnapshot reads the master data plus the per-period inputs for the
// store's configured periods into one immutable snapshot.
func (s *Store) LoadSnapshot(ctx context.Context) (*norms.Snapshot, error) {
	snap := &norms.Snapshot{
		Bindings:     make(map[norms.UtilityID]norms.AssetID),
		Demand:       make(map[norms.PeriodID]map[norms.UtilityID]norms.DemandRecord),
		Availability: make(map[norms.PeriodID][]norms.AvailabilityRecord),
		Coefficients: make(map[norms.PeriodID]map[norms.AssetID]norms.AssetCoefficients),
	}

	var err error
	if snap.Plants, err = s.loadPlants(ctx); err != nil {
		return nil, err
	}
	if snap.AccountTypes, err = s.loadAccountTypes(ctx); err != nil {
		return nil, err
	}
	if snap.Utilities, err = s.loadUtilities(ctx); err != nil {
		return nil, err
	}
	if snap.Edges, err = s.loadNorms(ctx); err != nil {
		return nil, err
	}
	if snap.Assets, err = s.loadAssets(ctx); err != nil {
		return nil, err
	}
	if snap.Bindings, err = s.loadBindings(ctx); err != nil {
		return nil, err
	}
	if err = s.loadDemands(ctx, snap); err != nil {
		return nil, err
	}
	if err = s.loadAvailability(ctx, snap); err != nil {
		return nil, err
	}
	if err = s.loadCoefficients(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadPlants(ctx context.Context) ([]norms.Plant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT PlantId, PlantCode, PlantName, COALESCE(Description, '')
		FROM PlantMaster
		ORDER BY PlantId`)
	if err != nil {
		return nil, fmt.Errorf("failed to query PlantMaster: %w", err)
	}
	defer rows.Close()

	var plants []norms.Plant
	for rows.Next() {
		var p norms.Plant
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan PlantMaster row: %w", err)
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

func (s *Store) loadAccountTypes(ctx context.Context) ([]norms.AccountType, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT AccountTypeId, Name, COALESCE(Description, '')
		FROM AccountTypeMaster
		ORDER BY AccountTypeId`)
	if err != nil {
		return nil, fmt.Errorf("failed to query AccountTypeMaster: %w", err)
	}
	defer rows.Close()

	var types []norms.AccountType
	for rows.Next() {
		var a norms.AccountType
		if err := rows.Scan(&a.ID, &a.Name, &a.Description); err != nil {
			return nil, fmt.Errorf("failed to scan AccountTypeMaster row: %w", err)
		}
		types = append(types, a)
	}
	return types, rows.Err()
}

func (s *Store) loadUtilities(ctx context.Context) ([]norms.Utility, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT UtilityId, UtilityCode, UtilityName, UOM, COALESCE(PlantId, 0), UtilityType, IsDistribution
		FROM UtilityMaster
		ORDER BY UtilityId`)
	if err != nil {
		return nil, fmt.Errorf("failed to query UtilityMaster: %w", err)
	}
	defer rows.Close()

	var utilities []norms.Utility
	for rows.Next() {
		var u norms.Utility
		var utype string
		if err := rows.Scan(&u.ID, &u.Code, &u.Name, &u.UOM, &u.PlantID, &utype, &u.IsDistribution); err != nil {
			return nil, fmt.Errorf("failed to scan UtilityMaster row: %w", err)
		}
		t, ok := norms.ParseUtilityType(utype)
		if !ok {
			return nil, fmt.Errorf("utility %d: unknown UtilityType %q", u.ID, utype)
		}
		u.Type = t
		utilities = append(utilities, u)
	}
	return utilities, rows.Err()
}

func (s *Store) loadNorms(ctx context.Context) ([]norms.NormEdge, error) {
	// NULL factor is the residual sentinel; preserve the distinction.
	rows, err := s.pool.Query(ctx, `
		SELECT NormId, ConsumerUtilityId, SupplierUtilityId, COALESCE(AccountTypeId, 0),
		       NormType, Factor::text, COALESCE(FormulaId, ''), Active, COALESCE(Description, '')
		FROM UtilityNorms
		ORDER BY NormId`)
	if err != nil {
		return nil, fmt.Errorf("failed to query UtilityNorms: %w", err)
	}
	defer rows.Close()

	var edges []norms.NormEdge
	for rows.Next() {
		var e norms.NormEdge
		var kind string
		var factor *string
		var formulaID string
		if err := rows.Scan(&e.ID, &e.ConsumerID, &e.SupplierID, &e.AccountTypeID,
			&kind, &factor, &formulaID, &e.Active, &e.Description); err != nil {
			return nil, fmt.Errorf("failed to scan UtilityNorms row: %w", err)
		}
		k, ok := norms.ParseEdgeKind(kind)
		if !ok {
			return nil, fmt.Errorf("norm %d: unknown NormType %q", e.ID, kind)
		}
		e.Kind = k
		e.FormulaID = norms.FormulaID(formulaID)
		if factor != nil {
			f, err := decimal.NewFromString(*factor)
			if err != nil {
				return nil, fmt.Errorf("norm %d: invalid Factor %q: %w", e.ID, *factor, err)
			}
			e.Factor = &f
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Store) loadAssets(ctx context.Context) ([]norms.SteamAsset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT AssetId, AssetName, AssetType, SteamType,
		       MinCapacityMT::text, MaxCapacityMT::text, Efficiency::text,
		       LinkedPowerAssetId, IsAlwaysAvailable, Priority
		FROM SteamGenerationAssets
		ORDER BY AssetId`)
	if err != nil {
		return nil, fmt.Errorf("failed to query SteamGenerationAssets: %w", err)
	}
	defer rows.Close()

	var assets []norms.SteamAsset
	for rows.Next() {
		var a norms.SteamAsset
		var atype, minCap, maxCap, efficiency string
		var linked *int64
		if err := rows.Scan(&a.ID, &a.Name, &atype, &a.SteamType,
			&minCap, &maxCap, &efficiency, &linked, &a.IsAlwaysAvailable, &a.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan SteamGenerationAssets row: %w", err)
		}
		t, ok := norms.ParseAssetType(atype)
		if !ok {
			return nil, fmt.Errorf("asset %d: unknown AssetType %q", a.ID, atype)
		}
		a.Type = t
		if a.MinCapacityMT, err = decimal.NewFromString(minCap); err != nil {
			return nil, fmt.Errorf("asset %d: invalid MinCapacityMT: %w", a.ID, err)
		}
		if a.MaxCapacityMT, err = decimal.NewFromString(maxCap); err != nil {
			return nil, fmt.Errorf("asset %d: invalid MaxCapacityMT: %w", a.ID, err)
		}
		if a.Efficiency, err = decimal.NewFromString(efficiency); err != nil {
			return nil, fmt.Errorf("asset %d: invalid Efficiency: %w", a.ID, err)
		}
		if linked != nil {
			lid := norms.AssetID(*linked)
			a.LinkedPowerAssetID = &lid
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *Store) loadBindings(ctx context.Context) (map[norms.UtilityID]norms.AssetID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT UtilityId, AssetId
		FROM UtilityAssetMapping
		ORDER BY UtilityId`)
	if err != nil {
		return nil, fmt.Errorf("failed to query UtilityAssetMapping: %w", err)
	}
	defer rows.Close()

	bindings := make(map[norms.UtilityID]norms.AssetID)
	for rows.Next() {
		var uid norms.UtilityID
		var aid norms.AssetID
		if err := rows.Scan(&uid, &aid); err != nil {
			return nil, fmt.Errorf("failed to scan UtilityAssetMapping row: %w", err)
		}
		bindings[uid] = aid
	}
	return bindings, rows.Err()
}

func (s *Store) loadDemands(ctx context.Context, snap *norms.Snapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT FinancialYearMonthId, UtilityId, ProcessQty::text, FixedQty::text
		FROM SteamRequirement
		WHERE FinancialYearMonthId = ANY($1)
		ORDER BY FinancialYearMonthId, UtilityId`, periodInts(s.periods))
	if err != nil {
		return fmt.Errorf("failed to query SteamRequirement: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var period norms.PeriodID
		var uid norms.UtilityID
		var process, fixed string
		if err := rows.Scan(&period, &uid, &process, &fixed); err != nil {
			return fmt.Errorf("failed to scan SteamRequirement row: %w", err)
		}
		d := norms.DemandRecord{UtilityID: uid}
		if d.Process, err = decimal.NewFromString(process); err != nil {
			return fmt.Errorf("demand for utility %d period %d: invalid ProcessQty: %w", uid, period, err)
		}
		if d.Fixed, err = decimal.NewFromString(fixed); err != nil {
			return fmt.Errorf("demand for utility %d period %d: invalid FixedQty: %w", uid, period, err)
		}
		if snap.Demand[period] == nil {
			snap.Demand[period] = make(map[norms.UtilityID]norms.DemandRecord)
		}
		snap.Demand[period][uid] = d
	}
	return rows.Err()
}

func (s *Store) loadAvailability(ctx context.Context, snap *norms.Snapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT FinancialYearMonthId, AssetId, IsAvailable, OperationalHours::text
		FROM AssetAvailability
		WHERE FinancialYearMonthId = ANY($1)
		ORDER BY FinancialYearMonthId, AssetId`, periodInts(s.periods))
	if err != nil {
		return fmt.Errorf("failed to query AssetAvailability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var period norms.PeriodID
		var rec norms.AvailabilityRecord
		var hours string
		if err := rows.Scan(&period, &rec.AssetID, &rec.Available, &hours); err != nil {
			return fmt.Errorf("failed to scan AssetAvailability row: %w", err)
		}
		if rec.OperationalHours, err = decimal.NewFromString(hours); err != nil {
			return fmt.Errorf("availability for asset %d period %d: invalid OperationalHours: %w", rec.AssetID, period, err)
		}
		snap.Availability[period] = append(snap.Availability[period], rec)
	}
	return rows.Err()
}

func (s *Store) loadCoefficients(ctx context.Context, snap *norms.Snapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT FinancialYearMonthId, AssetId, HeatRate::text, FreeSteamFactor::text
		FROM AssetCoefficients
		WHERE FinancialYearMonthId = ANY($1)
		ORDER BY FinancialYearMonthId, AssetId`, periodInts(s.periods))
	if err != nil {
		return fmt.Errorf("failed to query AssetCoefficients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var period norms.PeriodID
		var aid norms.AssetID
		var heatRate, fsf string
		if err := rows.Scan(&period, &aid, &heatRate, &fsf); err != nil {
			return fmt.Errorf("failed to scan AssetCoefficients row: %w", err)
		}
		var c norms.AssetCoefficients
		if c.HeatRate, err = decimal.NewFromString(heatRate); err != nil {
			return fmt.Errorf("coefficients for asset %d period %d: invalid HeatRate: %w", aid, period, err)
		}
		if c.FreeSteamFactor, err = decimal.NewFromString(fsf); err != nil {
			return fmt.Errorf("coefficients for asset %d period %d: invalid FreeSteamFactor: %w", aid, period, err)
		}
		if snap.Coefficients[period] == nil {
			snap.Coefficients[period] = make(map[norms.AssetID]norms.AssetCoefficients)
		}
		snap.Coefficients[period][aid] = c
	}
	return rows.Err()
}

func periodInts(periods []norms.PeriodID) []int64 {
	out := make([]int64, len(periods))
	for i, p := range periods {
		out[i] = int64(p)
	}
	return out
}
