package norms

import (
	"github.com/shopspring/decimal"
)

// UtilityID identifies a utility in the master data.
type UtilityID int64

// AssetID identifies a physical generation or conversion asset.
type AssetID int64

// PlantID identifies the plant owning a utility.
type PlantID int64

// PeriodID identifies an operating period (FinancialYearMonthId in the
// reference schema).
type PeriodID int64

// UtilityType classifies a utility.
type UtilityType int

const (
	Steam UtilityType = iota
	Power
	Water
	Gas
	RawMaterial
	Chemical
	ByProduct
)

// Utility is immutable reference data for the duration of a resolution.
type Utility struct {
	ID             UtilityID
	Code           string
	Name           string
	UOM            string
	PlantID        PlantID
	Type           UtilityType
	IsDistribution bool
}

// EdgeKind is the type of a norm edge.
type EdgeKind int

const (
	// Distribution splits a consumer's demand among suppliers by fraction.
	Distribution EdgeKind = iota
	// Conversion states supplier quantity per unit of consumer quantity.
	// A negative factor is a by-product credit.
	Conversion
)

// NormEdge is a directed edge from a consumer utility to a supplier utility.
// A nil Factor on a DISTRIBUTION edge marks the residual share, derived as
// 1 - sum(known factors) at graph construction. A non-empty FormulaID on a
// CONVERSION edge makes the edge formula-driven: the resolver consults the
// FormulaEvaluator instead of a constant factor.
type NormEdge struct {
	ID            int64
	ConsumerID    UtilityID
	SupplierID    UtilityID
	AccountTypeID int64
	Kind          EdgeKind
	Factor        *decimal.Decimal
	FormulaID     FormulaID
	Active        bool
	Description   string
}

// AssetType classifies a steam generation asset.
type AssetType int

const (
	HRSG AssetType = iota
	STG
	PRDS
)

// SteamAsset is a physical unit with capacity bounds. An HRSG mirrors the
// availability of its linked power-generation asset. Priority is surfaced
// for dispatch-order decisions but is not consumed by the balancing pass.
type SteamAsset struct {
	ID                 AssetID
	Name               string
	Type               AssetType
	SteamType          string
	MinCapacityMT      decimal.Decimal
	MaxCapacityMT      decimal.Decimal
	Efficiency         decimal.Decimal
	LinkedPowerAssetID *AssetID
	IsAlwaysAvailable  bool
	Priority           int
}

// DemandRecord is the external seed demand for one utility in one period.
type DemandRecord struct {
	UtilityID UtilityID
	Process   decimal.Decimal
	Fixed     decimal.Decimal
}

// Total returns process + fixed requirement.
func (d DemandRecord) Total() decimal.Decimal {
	return d.Process.Add(d.Fixed)
}

// AvailabilityRecord is the per-period availability of one asset.
type AvailabilityRecord struct {
	AssetID          AssetID
	Available        bool
	OperationalHours decimal.Decimal
}

// AssetCoefficients are per-period, per-asset physical coefficients supplied
// externally and consumed by formula-driven edges.
type AssetCoefficients struct {
	HeatRate        decimal.Decimal
	FreeSteamFactor decimal.Decimal
}

// Plant is a row of PlantMaster.
type Plant struct {
	ID          PlantID
	Code        string
	Name        string
	Description string
}

// AccountType is a row of AccountTypeMaster.
type AccountType struct {
	ID          int64
	Name        string
	Description string
}

// Snapshot is the immutable input assembled by a loader for one or more
// periods. The core never mutates a snapshot; concurrent resolutions must
// each receive their own.
type Snapshot struct {
	Plants       []Plant
	AccountTypes []AccountType
	Utilities    []Utility
	Edges        []NormEdge
	Assets       []SteamAsset
	// Bindings maps a utility to the physical asset that backs it.
	Bindings map[UtilityID]AssetID
	// Demand, Availability and Coefficients are keyed by period.
	Demand       map[PeriodID]map[UtilityID]DemandRecord
	Availability map[PeriodID][]AvailabilityRecord
	Coefficients map[PeriodID]map[AssetID]AssetCoefficients
}

// String methods for enums.
func (t UtilityType) String() string {
	switch t {
	case Steam:
		return "STEAM"
	case Power:
		return "POWER"
	case Water:
		return "WATER"
	case Gas:
		return "GAS"
	case RawMaterial:
		return "RAW_MATERIAL"
	case Chemical:
		return "CHEMICAL"
	case ByProduct:
		return "BY_PRODUCT"
	default:
		return "Unknown"
	}
}

func (k EdgeKind) String() string {
	switch k {
	case Distribution:
		return "DISTRIBUTION"
	case Conversion:
		return "CONVERSION"
	default:
		return "Unknown"
	}
}

func (t AssetType) String() string {
	switch t {
	case HRSG:
		return "HRSG"
	case STG:
		return "STG"
	case PRDS:
		return "PRDS"
	default:
		return "Unknown"
	}
}

// ParseUtilityType maps the persisted UtilityType column to its enum value.
func ParseUtilityType(s string) (UtilityType, bool) {
	switch s {
	case "STEAM":
		return Steam, true
	case "POWER":
		return Power, true
	case "WATER":
		return Water, true
	case "GAS":
		return Gas, true
	case "RAW_MATERIAL":
		return RawMaterial, true
	case "CHEMICAL":
		return Chemical, true
	case "BY_PRODUCT":
		return ByProduct, true
	default:
		return 0, false
	}
}

// ParseEdgeKind maps the persisted NormType column to its enum value.
func ParseEdgeKind(s string) (EdgeKind, bool) {
	switch s {
	case "DISTRIBUTION":
		return Distribution, true
	case "CONVERSION":
		return Conversion, true
	default:
		return 0, false
	}
}

// ParseAssetType maps the persisted AssetType column to its enum value.
func ParseAssetType(s string) (AssetType, bool) {
	switch s {
	case "HRSG":
		return HRSG, true
	case "STG":
		return STG, true
	case "PRDS":
		return PRDS, true
	default:
		return 0, false
	}
}
