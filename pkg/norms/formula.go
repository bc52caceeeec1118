package norms

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormulaID names an entry in the FormulaEvaluator registry.
type FormulaID string

const (
	// FormulaGasTurbineNetFuel computes a gas turbine's fuel requirement in
	// MMBTU net of the recovered-steam credit.
	FormulaGasTurbineNetFuel FormulaID = "gas_turbine_net_fuel"
	// FormulaSTGSHPInlet computes the SHP steam a steam turbine generator
	// draws per unit of gross generation.
	FormulaSTGSHPInlet FormulaID = "stg_shp_inlet"
)

// FormulaFunc is a pure physical formula: given the consumer's own resolved
// generation quantity and the period coefficients of its backing asset, it
// returns the supplier requirement.
type FormulaFunc func(generation decimal.Decimal, coeff AssetCoefficients) (decimal.Decimal, error)

// FormulaEvaluator is a small named registry of physical formulas. To the
// resolver an entry is indistinguishable from a conversion edge.
type FormulaEvaluator struct {
	formulas map[FormulaID]FormulaFunc
}

// NewFormulaEvaluator returns a registry with the built-in formulas.
func NewFormulaEvaluator() *FormulaEvaluator {
	e := &FormulaEvaluator{formulas: make(map[FormulaID]FormulaFunc)}
	e.Register(FormulaGasTurbineNetFuel, GasTurbineNetFuel)
	e.Register(FormulaSTGSHPInlet, STGSHPInlet)
	return e
}

// Register adds or replaces a formula.
func (e *FormulaEvaluator) Register(id FormulaID, fn FormulaFunc) {
	e.formulas[id] = fn
}

// Has reports whether the registry knows the formula.
func (e *FormulaEvaluator) Has(id FormulaID) bool {
	_, ok := e.formulas[id]
	return ok
}

// Evaluate runs the named formula.
func (e *FormulaEvaluator) Evaluate(id FormulaID, generation decimal.Decimal, coeff AssetCoefficients) (decimal.Decimal, error) {
	fn, ok := e.formulas[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown formula %q", id)
	}
	return fn(generation, coeff)
}

var (
	// kcalToBTU converts KCAL to BTU.
	kcalToBTU = decimal.RequireFromString("3.96567")
	// freeSteamEnergy is the recoverable energy per kg of HRSG free steam:
	// (SHP enthalpy 810 - HRSG inlet enthalpy 110) / HRSG efficiency 0.92.
	freeSteamEnergy = decimal.RequireFromString("760.87")
	// mmbtuScale converts BTU to MMBTU.
	mmbtuScale = decimal.NewFromInt(1_000_000)

	// stgSHPPerKWH is the SHP steam drawn per KWH of STG gross generation.
	stgSHPPerKWH = decimal.RequireFromString("0.0036")
)

// GasTurbineNetFuel returns the natural-gas requirement in MMBTU for the
// given gross generation (KWH), net of the free-steam credit recovered by
// the linked HRSG:
//
//	gross = KWH x HeatRate x 3.96567 / 1e6
//	free  = KWH x FreeSteamFactor x 760.87 x 3.96567 / 1e6
//	net   = gross - free
func GasTurbineNetFuel(kwh decimal.Decimal, coeff AssetCoefficients) (decimal.Decimal, error) {
	if kwh.Sign() <= 0 {
		return decimal.Zero, nil
	}
	net := GasTurbineGrossEnergy(kwh, coeff).Sub(GasTurbineFreeSteam(kwh, coeff))
	if net.IsNegative() {
		net = decimal.Zero
	}
	return net, nil
}

// GasTurbineGrossEnergy is the turbine's gross fuel energy in MMBTU.
func GasTurbineGrossEnergy(kwh decimal.Decimal, coeff AssetCoefficients) decimal.Decimal {
	return kwh.Mul(coeff.HeatRate).Mul(kcalToBTU).Div(mmbtuScale)
}

// GasTurbineFreeSteam is the energy credit in MMBTU for steam recovered by
// the linked HRSG.
func GasTurbineFreeSteam(kwh decimal.Decimal, coeff AssetCoefficients) decimal.Decimal {
	return kwh.Mul(coeff.FreeSteamFactor).Mul(freeSteamEnergy).Mul(kcalToBTU).Div(mmbtuScale)
}

// GasTurbineNetFuelNorm returns the derived norm in MMBTU per KWH, zero when
// generation is zero.
func GasTurbineNetFuelNorm(kwh decimal.Decimal, coeff AssetCoefficients) (decimal.Decimal, error) {
	if kwh.Sign() <= 0 {
		return decimal.Zero, nil
	}
	net, err := GasTurbineNetFuel(kwh, coeff)
	if err != nil {
		return decimal.Zero, err
	}
	return net.Div(kwh), nil
}

// STGSHPInlet returns the SHP steam (MT) drawn by a steam turbine generator
// for the given gross generation (KWH).
func STGSHPInlet(kwh decimal.Decimal, _ AssetCoefficients) (decimal.Decimal, error) {
	if kwh.Sign() <= 0 {
		return decimal.Zero, nil
	}
	return kwh.Mul(stgSHPPerKWH), nil
}
