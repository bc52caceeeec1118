package norms

import "github.com/shopspring/decimal"

// MustDecimal parses a decimal literal, panicking on bad input. Test and
// fixture use only.
func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecimalPtr returns a pointer to a parsed decimal literal.
func DecimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// Fixture utility ids for the reference steam network.
const (
	FxLPDis UtilityID = iota + 1
	FxMPDis
	FxHPDis
	FxSHPDis
	FxLPSTG
	FxLPPRDS
	FxMPSTG
	FxMPPRDS
	FxHPPRDS
	FxHRSG1SHP
	FxHRSG2SHP
	FxHRSG3SHP
	FxBFW
	FxDMWater
	FxNaturalGas
	FxGT2Power
)

// Fixture asset ids.
const (
	FxAssetHRSG1 AssetID = 1
	FxAssetHRSG2 AssetID = 2
	FxAssetHRSG3 AssetID = 3
	FxAssetSTG   AssetID = 4
	FxAssetPRDS  AssetID = 5
	FxAssetGT1   AssetID = 101
	FxAssetGT2   AssetID = 102
	FxAssetGT3   AssetID = 103
)

// SteamNetworkFixture is a miniature of the plant's utility network: four
// steam grades fed through STG extraction, PRDS letdown and two HRSGs, with
// boiler feed water, DM water and natural gas downstream, an LP by-product
// credit from the HRSGs, and one formula-driven gas turbine.
type SteamNetworkFixture struct {
	Utilities    []Utility
	Edges        []NormEdge
	Assets       []SteamAsset
	Bindings     map[UtilityID]AssetID
	Records      []AvailabilityRecord
	Coefficients map[AssetID]AssetCoefficients
	Demand       map[UtilityID]DemandRecord
}

// NewSteamNetworkFixture builds the reference network with every asset
// available. Factors mirror the plant's published norms.
func NewSteamNetworkFixture() *SteamNetworkFixture {
	gt1 := FxAssetGT1
	gt2 := FxAssetGT2
	gt3 := FxAssetGT3

	f := &SteamNetworkFixture{
		Utilities: []Utility{
			{ID: FxLPDis, Code: "LP_STEAM_DIS", Name: "LP Steam_Dis", UOM: "MT", Type: Steam, IsDistribution: true},
			{ID: FxMPDis, Code: "MP_STEAM_DIS", Name: "MP Steam_Dis", UOM: "MT", Type: Steam, IsDistribution: true},
			{ID: FxHPDis, Code: "HP_STEAM_DIS", Name: "HP Steam_Dis", UOM: "MT", Type: Steam, IsDistribution: true},
			{ID: FxSHPDis, Code: "SHP_STEAM_DIS", Name: "SHP Steam_Dis", UOM: "MT", Type: Steam, IsDistribution: true},
			{ID: FxLPSTG, Code: "STG1_LP_STEAM", Name: "STG1 LP Steam", UOM: "MT", Type: Steam},
			{ID: FxLPPRDS, Code: "LP_STEAM_PRDS", Name: "LP Steam PRDS", UOM: "MT", Type: Steam},
			{ID: FxMPSTG, Code: "STG1_MP_STEAM", Name: "STG1 MP Steam", UOM: "MT", Type: Steam},
			{ID: FxMPPRDS, Code: "MP_STEAM_PRDS", Name: "MP Steam PRDS", UOM: "MT", Type: Steam},
			{ID: FxHPPRDS, Code: "HP_STEAM_PRDS", Name: "HP Steam PRDS", UOM: "MT", Type: Steam},
			{ID: FxHRSG1SHP, Code: "HRSG1_SHP_STEAM", Name: "HRSG1 SHP Steam", UOM: "MT", Type: Steam},
			{ID: FxHRSG2SHP, Code: "HRSG2_SHP_STEAM", Name: "HRSG2 SHP Steam", UOM: "MT", Type: Steam},
			{ID: FxHRSG3SHP, Code: "HRSG3_SHP_STEAM", Name: "HRSG3 SHP Steam", UOM: "MT", Type: Steam},
			{ID: FxBFW, Code: "BFW", Name: "Boiler Feed Water", UOM: "M3", Type: Water},
			{ID: FxDMWater, Code: "DM_WATER", Name: "D M Water", UOM: "M3", Type: Water},
			{ID: FxNaturalGas, Code: "NATURAL_GAS", Name: "Natural Gas", UOM: "MMBTU", Type: Gas},
			{ID: FxGT2Power, Code: "GT2_POWERGEN", Name: "GT2 Power Generation", UOM: "KWH", Type: Power},
		},
		Edges: []NormEdge{
			// LP demand splits between STG extraction and PRDS letdown.
			{ID: 1, ConsumerID: FxLPDis, SupplierID: FxLPSTG, Kind: Distribution, Factor: DecimalPtr("0.6134"), Active: true},
			{ID: 2, ConsumerID: FxLPDis, SupplierID: FxLPPRDS, Kind: Distribution, Factor: DecimalPtr("0.3866"), Active: true},
			// MP demand.
			{ID: 3, ConsumerID: FxMPDis, SupplierID: FxMPSTG, Kind: Distribution, Factor: DecimalPtr("0.2908"), Active: true},
			{ID: 4, ConsumerID: FxMPDis, SupplierID: FxMPPRDS, Kind: Distribution, Factor: DecimalPtr("0.7092"), Active: true},
			// HP comes entirely from PRDS.
			{ID: 5, ConsumerID: FxHPDis, SupplierID: FxHPPRDS, Kind: Distribution, Factor: DecimalPtr("1.0"), Active: true},
			// SHP splits across the HRSGs; HRSG1's share is the residual.
			{ID: 6, ConsumerID: FxSHPDis, SupplierID: FxHRSG2SHP, Kind: Distribution, Factor: DecimalPtr("0.4934"), Active: true},
			{ID: 7, ConsumerID: FxSHPDis, SupplierID: FxHRSG3SHP, Kind: Distribution, Factor: DecimalPtr("0.5066"), Active: true},
			{ID: 8, ConsumerID: FxSHPDis, SupplierID: FxHRSG1SHP, Kind: Distribution, Factor: nil, Active: true},
			// STG extraction draws SHP.
			{ID: 9, ConsumerID: FxLPSTG, SupplierID: FxSHPDis, Kind: Conversion, Factor: DecimalPtr("0.48"), Active: true},
			{ID: 10, ConsumerID: FxMPSTG, SupplierID: FxSHPDis, Kind: Conversion, Factor: DecimalPtr("0.69"), Active: true},
			// PRDS letdown draws the higher grade plus BFW spray water.
			{ID: 11, ConsumerID: FxLPPRDS, SupplierID: FxMPDis, Kind: Conversion, Factor: DecimalPtr("0.75"), Active: true},
			{ID: 12, ConsumerID: FxLPPRDS, SupplierID: FxBFW, Kind: Conversion, Factor: DecimalPtr("0.25"), Active: true},
			{ID: 13, ConsumerID: FxMPPRDS, SupplierID: FxSHPDis, Kind: Conversion, Factor: DecimalPtr("0.91"), Active: true},
			{ID: 14, ConsumerID: FxMPPRDS, SupplierID: FxBFW, Kind: Conversion, Factor: DecimalPtr("0.09"), Active: true},
			{ID: 15, ConsumerID: FxHPPRDS, SupplierID: FxSHPDis, Kind: Conversion, Factor: DecimalPtr("0.9232"), Active: true},
			{ID: 16, ConsumerID: FxHPPRDS, SupplierID: FxBFW, Kind: Conversion, Factor: DecimalPtr("0.0768"), Active: true},
			// HRSG generation burns gas, consumes BFW and returns an LP
			// by-product credit.
			{ID: 17, ConsumerID: FxHRSG2SHP, SupplierID: FxNaturalGas, Kind: Conversion, Factor: DecimalPtr("2.8064"), Active: true},
			{ID: 18, ConsumerID: FxHRSG2SHP, SupplierID: FxBFW, Kind: Conversion, Factor: DecimalPtr("1.024"), Active: true},
			{ID: 19, ConsumerID: FxHRSG2SHP, SupplierID: FxLPDis, Kind: Conversion, Factor: DecimalPtr("-0.0504"), Active: true},
			{ID: 20, ConsumerID: FxHRSG3SHP, SupplierID: FxNaturalGas, Kind: Conversion, Factor: DecimalPtr("2.8168"), Active: true},
			{ID: 21, ConsumerID: FxHRSG3SHP, SupplierID: FxBFW, Kind: Conversion, Factor: DecimalPtr("1.024"), Active: true},
			{ID: 22, ConsumerID: FxHRSG3SHP, SupplierID: FxLPDis, Kind: Conversion, Factor: DecimalPtr("-0.0504"), Active: true},
			// BFW production consumes DM water.
			{ID: 23, ConsumerID: FxBFW, SupplierID: FxDMWater, Kind: Conversion, Factor: DecimalPtr("0.86"), Active: true},
			// GT2 fuel is formula-driven, net of the HRSG free-steam credit.
			{ID: 24, ConsumerID: FxGT2Power, SupplierID: FxNaturalGas, Kind: Conversion, FormulaID: FormulaGasTurbineNetFuel, Active: true},
		},
		Assets: []SteamAsset{
			{ID: FxAssetHRSG1, Name: "HRSG1", Type: HRSG, SteamType: "SHP", MaxCapacityMT: MustDecimal("75"), Efficiency: MustDecimal("0.92"), LinkedPowerAssetID: &gt1, Priority: 3},
			{ID: FxAssetHRSG2, Name: "HRSG2", Type: HRSG, SteamType: "SHP", MaxCapacityMT: MustDecimal("75"), Efficiency: MustDecimal("0.92"), LinkedPowerAssetID: &gt2, Priority: 1},
			{ID: FxAssetHRSG3, Name: "HRSG3", Type: HRSG, SteamType: "SHP", MaxCapacityMT: MustDecimal("75"), Efficiency: MustDecimal("0.92"), LinkedPowerAssetID: &gt3, Priority: 2},
			{ID: FxAssetSTG, Name: "STG1", Type: STG, SteamType: "SHP", MaxCapacityMT: MustDecimal("120"), Efficiency: MustDecimal("0.88"), IsAlwaysAvailable: true, Priority: 1},
			{ID: FxAssetPRDS, Name: "PRDS", Type: PRDS, SteamType: "SHP", MaxCapacityMT: MustDecimal("200"), Efficiency: MustDecimal("0.99"), IsAlwaysAvailable: true, Priority: 2},
		},
		Bindings: map[UtilityID]AssetID{
			FxHRSG1SHP: FxAssetHRSG1,
			FxHRSG2SHP: FxAssetHRSG2,
			FxHRSG3SHP: FxAssetHRSG3,
			FxLPSTG:    FxAssetSTG,
			FxMPSTG:    FxAssetSTG,
			FxLPPRDS:   FxAssetPRDS,
			FxMPPRDS:   FxAssetPRDS,
			FxHPPRDS:   FxAssetPRDS,
			FxGT2Power: FxAssetGT2,
		},
		Records: []AvailabilityRecord{
			{AssetID: FxAssetGT1, Available: false, OperationalHours: decimal.Zero},
			{AssetID: FxAssetGT2, Available: true, OperationalHours: MustDecimal("720")},
			{AssetID: FxAssetGT3, Available: true, OperationalHours: MustDecimal("720")},
		},
		Coefficients: map[AssetID]AssetCoefficients{
			FxAssetGT2: {HeatRate: MustDecimal("4084.94"), FreeSteamFactor: MustDecimal("1.97")},
		},
		Demand: map[UtilityID]DemandRecord{
			FxLPDis:  {UtilityID: FxLPDis, Process: MustDecimal("30000"), Fixed: MustDecimal("2000")},
			FxMPDis:  {UtilityID: FxMPDis, Process: MustDecimal("18000"), Fixed: MustDecimal("1500")},
			FxHPDis:  {UtilityID: FxHPDis, Process: MustDecimal("6000"), Fixed: MustDecimal("500")},
			FxSHPDis: {UtilityID: FxSHPDis, Process: MustDecimal("12000"), Fixed: MustDecimal("1000")},
		},
	}
	return f
}

// Graph builds the fixture's validated NormsGraph.
func (f *SteamNetworkFixture) Graph() (*NormsGraph, error) {
	return NewNormsGraph(f.Utilities, f.Edges)
}

// View builds the fixture's AvailabilityView.
func (f *SteamNetworkFixture) View() *AvailabilityView {
	return NewAvailabilityView(f.Assets, f.Records, f.Bindings)
}

// Input assembles a complete ResolveInput for the fixture period.
func (f *SteamNetworkFixture) Input() (ResolveInput, error) {
	g, err := f.Graph()
	if err != nil {
		return ResolveInput{}, err
	}
	return ResolveInput{
		Graph:        g,
		Availability: f.View(),
		Formulas:     NewFormulaEvaluator(),
		Demand:       f.Demand,
		Coefficients: f.Coefficients,
		Period:       202604,
	}, nil
}
