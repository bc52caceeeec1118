package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/plantops/utilbalance/pkg/norms"
)

// Loader reads a snapshot from a directory of CSV files. Required files:
// utilities.csv, norms.csv, assets.csv, demands.csv, availability.csv.
// Optional files: plants.csv, account_types.csv, bindings.csv,
// coefficients.csv. Headers use the persisted schema's field names,
// snake_cased.
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at the given directory.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// LoadSnapshot reads every file in the directory into one immutable snapshot.
func (l *Loader) LoadSnapshot(_ context.Context) (*norms.Snapshot, error) {
	snap := &norms.Snapshot{
		Bindings:     make(map[norms.UtilityID]norms.AssetID),
		Demand:       make(map[norms.PeriodID]map[norms.UtilityID]norms.DemandRecord),
		Availability: make(map[norms.PeriodID][]norms.AvailabilityRecord),
		Coefficients: make(map[norms.PeriodID]map[norms.AssetID]norms.AssetCoefficients),
	}

	var err error
	if snap.Plants, err = l.loadPlants(); err != nil {
		return nil, err
	}
	if snap.AccountTypes, err = l.loadAccountTypes(); err != nil {
		return nil, err
	}
	if snap.Utilities, err = l.LoadUtilities(); err != nil {
		return nil, err
	}
	if snap.Edges, err = l.LoadNorms(); err != nil {
		return nil, err
	}
	if snap.Assets, err = l.LoadAssets(); err != nil {
		return nil, err
	}
	if snap.Bindings, err = l.loadBindings(); err != nil {
		return nil, err
	}
	if err = l.loadDemands(snap); err != nil {
		return nil, err
	}
	if err = l.loadAvailability(snap); err != nil {
		return nil, err
	}
	if err = l.loadCoefficients(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// LoadUtilities loads the utility master from utilities.csv.
func (l *Loader) LoadUtilities() ([]norms.Utility, error) {
	expectedHeader := []string{"utility_id", "utility_code", "utility_name", "uom", "plant_id", "utility_type", "is_distribution"}
	records, err := l.readFile("utilities.csv", expectedHeader, true)
	if err != nil {
		return nil, err
	}

	var utilities []norms.Utility
	for i, record := range records {
		u, err := parseUtility(record)
		if err != nil {
			return nil, fmt.Errorf("utilities CSV row %d: %w", i+2, err)
		}
		utilities = append(utilities, u)
	}
	return utilities, nil
}

// LoadNorms loads the norm edges from norms.csv. An empty factor on a
// DISTRIBUTION row marks the residual share.
func (l *Loader) LoadNorms() ([]norms.NormEdge, error) {
	expectedHeader := []string{"norm_id", "consumer_utility_id", "supplier_utility_id", "account_type_id", "norm_type", "factor", "formula_id", "active", "description"}
	records, err := l.readFile("norms.csv", expectedHeader, true)
	if err != nil {
		return nil, err
	}

	var edges []norms.NormEdge
	for i, record := range records {
		e, err := parseNormEdge(record)
		if err != nil {
			return nil, fmt.Errorf("norms CSV row %d: %w", i+2, err)
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// LoadAssets loads the steam generation assets from assets.csv.
func (l *Loader) LoadAssets() ([]norms.SteamAsset, error) {
	expectedHeader := []string{"asset_id", "asset_name", "asset_type", "steam_type", "min_capacity_mt", "max_capacity_mt", "efficiency", "linked_power_asset_id", "is_always_available", "priority"}
	records, err := l.readFile("assets.csv", expectedHeader, true)
	if err != nil {
		return nil, err
	}

	var assets []norms.SteamAsset
	for i, record := range records {
		a, err := parseAsset(record)
		if err != nil {
			return nil, fmt.Errorf("assets CSV row %d: %w", i+2, err)
		}
		assets = append(assets, a)
	}
	return assets, nil
}

func (l *Loader) loadPlants() ([]norms.Plant, error) {
	expectedHeader := []string{"plant_id", "plant_code", "plant_name", "description"}
	records, err := l.readFile("plants.csv", expectedHeader, false)
	if err != nil || records == nil {
		return nil, err
	}

	var plants []norms.Plant
	for i, record := range records {
		id, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("plants CSV row %d: invalid plant_id: %s", i+2, record[0])
		}
		plants = append(plants, norms.Plant{
			ID:          norms.PlantID(id),
			Code:        record[1],
			Name:        record[2],
			Description: record[3],
		})
	}
	return plants, nil
}

func (l *Loader) loadAccountTypes() ([]norms.AccountType, error) {
	expectedHeader := []string{"account_type_id", "name", "description"}
	records, err := l.readFile("account_types.csv", expectedHeader, false)
	if err != nil || records == nil {
		return nil, err
	}

	var types []norms.AccountType
	for i, record := range records {
		id, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("account_types CSV row %d: invalid account_type_id: %s", i+2, record[0])
		}
		types = append(types, norms.AccountType{ID: id, Name: record[1], Description: record[2]})
	}
	return types, nil
}

func (l *Loader) loadBindings() (map[norms.UtilityID]norms.AssetID, error) {
	bindings := make(map[norms.UtilityID]norms.AssetID)
	expectedHeader := []string{"utility_id", "asset_id"}
	records, err := l.readFile("bindings.csv", expectedHeader, false)
	if err != nil || records == nil {
		return bindings, err
	}

	for i, record := range records {
		uid, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bindings CSV row %d: invalid utility_id: %s", i+2, record[0])
		}
		aid, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bindings CSV row %d: invalid asset_id: %s", i+2, record[1])
		}
		bindings[norms.UtilityID(uid)] = norms.AssetID(aid)
	}
	return bindings, nil
}

func (l *Loader) loadDemands(snap *norms.Snapshot) error {
	expectedHeader := []string{"period_id", "utility_id", "process_qty", "fixed_qty"}
	records, err := l.readFile("demands.csv", expectedHeader, true)
	if err != nil {
		return err
	}

	for i, record := range records {
		period, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return fmt.Errorf("demands CSV row %d: invalid period_id: %s", i+2, record[0])
		}
		uid, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return fmt.Errorf("demands CSV row %d: invalid utility_id: %s", i+2, record[1])
		}
		process, err := decimal.NewFromString(record[2])
		if err != nil {
			return fmt.Errorf("demands CSV row %d: invalid process_qty: %s", i+2, record[2])
		}
		fixed, err := decimal.NewFromString(record[3])
		if err != nil {
			return fmt.Errorf("demands CSV row %d: invalid fixed_qty: %s", i+2, record[3])
		}

		p := norms.PeriodID(period)
		if snap.Demand[p] == nil {
			snap.Demand[p] = make(map[norms.UtilityID]norms.DemandRecord)
		}
		snap.Demand[p][norms.UtilityID(uid)] = norms.DemandRecord{
			UtilityID: norms.UtilityID(uid),
			Process:   process,
			Fixed:     fixed,
		}
	}
	return nil
}

func (l *Loader) loadAvailability(snap *norms.Snapshot) error {
	expectedHeader := []string{"period_id", "asset_id", "available", "operational_hours"}
	records, err := l.readFile("availability.csv", expectedHeader, true)
	if err != nil {
		return err
	}

	for i, record := range records {
		period, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return fmt.Errorf("availability CSV row %d: invalid period_id: %s", i+2, record[0])
		}
		aid, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return fmt.Errorf("availability CSV row %d: invalid asset_id: %s", i+2, record[1])
		}
		available, err := strconv.ParseBool(record[2])
		if err != nil {
			return fmt.Errorf("availability CSV row %d: invalid available: %s", i+2, record[2])
		}
		hours, err := decimal.NewFromString(record[3])
		if err != nil {
			return fmt.Errorf("availability CSV row %d: invalid operational_hours: %s", i+2, record[3])
		}

		p := norms.PeriodID(period)
		snap.Availability[p] = append(snap.Availability[p], norms.AvailabilityRecord{
			AssetID:          norms.AssetID(aid),
			Available:        available,
			OperationalHours: hours,
		})
	}
	return nil
}

func (l *Loader) loadCoefficients(snap *norms.Snapshot) error {
	expectedHeader := []string{"period_id", "asset_id", "heat_rate", "free_steam_factor"}
	records, err := l.readFile("coefficients.csv", expectedHeader, false)
	if err != nil || records == nil {
		return err
	}

	for i, record := range records {
		period, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return fmt.Errorf("coefficients CSV row %d: invalid period_id: %s", i+2, record[0])
		}
		aid, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return fmt.Errorf("coefficients CSV row %d: invalid asset_id: %s", i+2, record[1])
		}
		heatRate, err := decimal.NewFromString(record[2])
		if err != nil {
			return fmt.Errorf("coefficients CSV row %d: invalid heat_rate: %s", i+2, record[2])
		}
		fsf, err := decimal.NewFromString(record[3])
		if err != nil {
			return fmt.Errorf("coefficients CSV row %d: invalid free_steam_factor: %s", i+2, record[3])
		}

		p := norms.PeriodID(period)
		if snap.Coefficients[p] == nil {
			snap.Coefficients[p] = make(map[norms.AssetID]norms.AssetCoefficients)
		}
		snap.Coefficients[p][norms.AssetID(aid)] = norms.AssetCoefficients{
			HeatRate:        heatRate,
			FreeSteamFactor: fsf,
		}
	}
	return nil
}

// readFile opens a CSV file under the loader's directory, validates its
// header and returns the data rows. Optional files that do not exist return
// nil rows and no error.
func (l *Loader) readFile(name string, expectedHeader []string, required bool) ([][]string, error) {
	path := filepath.Join(l.dir, name)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s must have a header row", name)
	}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("%s header mismatch. Expected: %v, Got: %v", name, expectedHeader, records[0])
	}
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s row %d: expected %d columns, got %d", name, i+2, len(expectedHeader), len(record))
		}
	}
	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}
	return true
}

func parseUtility(record []string) (norms.Utility, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return norms.Utility{}, fmt.Errorf("invalid utility_id: %s", record[0])
	}

	var plantID int64
	if record[4] != "" {
		plantID, err = strconv.ParseInt(record[4], 10, 64)
		if err != nil {
			return norms.Utility{}, fmt.Errorf("invalid plant_id: %s", record[4])
		}
	}

	utype, ok := norms.ParseUtilityType(strings.ToUpper(record[5]))
	if !ok {
		return norms.Utility{}, fmt.Errorf("invalid utility_type: %s", record[5])
	}

	isDist, err := strconv.ParseBool(record[6])
	if err != nil {
		return norms.Utility{}, fmt.Errorf("invalid is_distribution: %s", record[6])
	}

	return norms.Utility{
		ID:             norms.UtilityID(id),
		Code:           record[1],
		Name:           record[2],
		UOM:            record[3],
		PlantID:        norms.PlantID(plantID),
		Type:           utype,
		IsDistribution: isDist,
	}, nil
}

func parseNormEdge(record []string) (norms.NormEdge, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return norms.NormEdge{}, fmt.Errorf("invalid norm_id: %s", record[0])
	}
	consumer, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil {
		return norms.NormEdge{}, fmt.Errorf("invalid consumer_utility_id: %s", record[1])
	}
	supplier, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return norms.NormEdge{}, fmt.Errorf("invalid supplier_utility_id: %s", record[2])
	}

	var accountType int64
	if record[3] != "" {
		accountType, err = strconv.ParseInt(record[3], 10, 64)
		if err != nil {
			return norms.NormEdge{}, fmt.Errorf("invalid account_type_id: %s", record[3])
		}
	}

	kind, ok := norms.ParseEdgeKind(strings.ToUpper(record[4]))
	if !ok {
		return norms.NormEdge{}, fmt.Errorf("invalid norm_type: %s (expected DISTRIBUTION or CONVERSION)", record[4])
	}

	// An empty factor is the residual sentinel, not zero.
	var factor *decimal.Decimal
	if record[5] != "" {
		f, err := decimal.NewFromString(record[5])
		if err != nil {
			return norms.NormEdge{}, fmt.Errorf("invalid factor: %s", record[5])
		}
		factor = &f
	}

	active, err := strconv.ParseBool(record[7])
	if err != nil {
		return norms.NormEdge{}, fmt.Errorf("invalid active: %s", record[7])
	}

	return norms.NormEdge{
		ID:            id,
		ConsumerID:    norms.UtilityID(consumer),
		SupplierID:    norms.UtilityID(supplier),
		AccountTypeID: accountType,
		Kind:          kind,
		Factor:        factor,
		FormulaID:     norms.FormulaID(record[6]),
		Active:        active,
		Description:   record[8],
	}, nil
}

func parseAsset(record []string) (norms.SteamAsset, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return norms.SteamAsset{}, fmt.Errorf("invalid asset_id: %s", record[0])
	}

	atype, ok := norms.ParseAssetType(strings.ToUpper(record[2]))
	if !ok {
		return norms.SteamAsset{}, fmt.Errorf("invalid asset_type: %s (expected HRSG, STG or PRDS)", record[2])
	}

	minCap, err := decimal.NewFromString(record[4])
	if err != nil {
		return norms.SteamAsset{}, fmt.Errorf("invalid min_capacity_mt: %s", record[4])
	}
	maxCap, err := decimal.NewFromString(record[5])
	if err != nil {
		return norms.SteamAsset{}, fmt.Errorf("invalid max_capacity_mt: %s", record[5])
	}
	efficiency, err := decimal.NewFromString(record[6])
	if err != nil {
		return norms.SteamAsset{}, fmt.Errorf("invalid efficiency: %s", record[6])
	}

	var linked *norms.AssetID
	if record[7] != "" {
		lid, err := strconv.ParseInt(record[7], 10, 64)
		if err != nil {
			return norms.SteamAsset{}, fmt.Errorf("invalid linked_power_asset_id: %s", record[7])
		}
		aid := norms.AssetID(lid)
		linked = &aid
	}

	alwaysAvailable, err := strconv.ParseBool(record[8])
	if err != nil {
		return norms.SteamAsset{}, fmt.Errorf("invalid is_always_available: %s", record[8])
	}

	priority, err := strconv.Atoi(record[9])
	if err != nil {
		return norms.SteamAsset{}, fmt.Errorf("invalid priority: %s", record[9])
	}

	return norms.SteamAsset{
		ID:                 norms.AssetID(id),
		Name:               record[1],
		Type:               atype,
		SteamType:          record[3],
		MinCapacityMT:      minCap,
		MaxCapacityMT:      maxCap,
		Efficiency:         efficiency,
		LinkedPowerAssetID: linked,
		IsAlwaysAvailable:  alwaysAvailable,
		Priority:           priority,
	}, nil
}
