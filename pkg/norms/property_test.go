package norms

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// TestResolutionInvariants verifies properties that must hold for any valid
// input, independent of the particular network.
func TestResolutionInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	// Property 1: distribution conserves quantity. Whatever the split, the
	// supplier shares sum back to the consumer's demand.
	properties.Property("distribution conserves quantity", prop.ForAll(
		func(f1, f2, demand float64) bool {
			utilities := []Utility{
				{ID: 1, Code: "DIS", UOM: "MT", Type: Steam, IsDistribution: true},
				{ID: 2, Code: "S1", UOM: "MT", Type: Steam},
				{ID: 3, Code: "S2", UOM: "MT", Type: Steam},
				{ID: 4, Code: "S3", UOM: "MT", Type: Steam},
			}
			a := decimal.NewFromFloat(f1)
			b := decimal.NewFromFloat(f2)
			edges := []NormEdge{
				{ID: 1, ConsumerID: 1, SupplierID: 2, Kind: Distribution, Factor: &a, Active: true},
				{ID: 2, ConsumerID: 1, SupplierID: 3, Kind: Distribution, Factor: &b, Active: true},
				{ID: 3, ConsumerID: 1, SupplierID: 4, Kind: Distribution, Factor: nil, Active: true},
			}
			g, err := NewNormsGraph(utilities, edges)
			if err != nil {
				return true // factor sum over one is rejected, not solved
			}
			res, err := Resolve(ResolveInput{
				Graph:        g,
				Availability: NewAvailabilityView(nil, nil, nil),
				Formulas:     NewFormulaEvaluator(),
				Demand:       map[UtilityID]DemandRecord{1: {UtilityID: 1, Process: decimal.NewFromFloat(demand)}},
				Period:       202604,
			}, ResolveOptions{})
			if err != nil {
				return false
			}
			sum := res.Quantity(2).Add(res.Quantity(3)).Add(res.Quantity(4))
			return sum.Sub(res.Quantity(1)).Abs().LessThan(decimal.New(1, -3))
		},
		gen.Float64Range(0, 0.5),
		gen.Float64Range(0, 0.5),
		gen.Float64Range(1, 1e6),
	))

	// Property 2: no resolved quantity is ever negative, whatever the
	// by-product credit.
	properties.Property("quantities are never negative", prop.ForAll(
		func(credit, draw, demand float64) bool {
			utilities := []Utility{
				{ID: 1, Code: "PROC", UOM: "MT", Type: Steam},
				{ID: 2, Code: "UTIL", UOM: "MT", Type: Water},
			}
			c := decimal.NewFromFloat(-credit)
			d := decimal.NewFromFloat(draw)
			edges := []NormEdge{
				{ID: 1, ConsumerID: 1, SupplierID: 2, Kind: Conversion, Factor: &d, Active: true},
				{ID: 2, ConsumerID: 1, SupplierID: 2, Kind: Conversion, Factor: &c, Active: true},
			}
			g, err := NewNormsGraph(utilities, edges)
			if err != nil {
				return false
			}
			res, err := Resolve(ResolveInput{
				Graph:        g,
				Availability: NewAvailabilityView(nil, nil, nil),
				Formulas:     NewFormulaEvaluator(),
				Demand:       map[UtilityID]DemandRecord{1: {UtilityID: 1, Process: decimal.NewFromFloat(demand)}},
				Period:       202604,
			}, ResolveOptions{})
			if err != nil {
				return false
			}
			for _, q := range res.Quantities {
				if q.Sign() < 0 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 2),
		gen.Float64Range(0, 2),
		gen.Float64Range(0, 1e6),
	))

	// Property 3: a two-utility cycle with factor product below one contracts
	// to the closed-form geometric fixed point.
	properties.Property("contracting cycle reaches the closed-form fixed point", prop.ForAll(
		func(fa, fb, demand float64) bool {
			utilities := []Utility{
				{ID: 1, Code: "A", UOM: "MT", Type: Steam},
				{ID: 2, Code: "B", UOM: "MT", Type: Steam},
			}
			a := decimal.NewFromFloat(fa)
			b := decimal.NewFromFloat(fb)
			edges := []NormEdge{
				{ID: 1, ConsumerID: 1, SupplierID: 2, Kind: Conversion, Factor: &a, Active: true},
				{ID: 2, ConsumerID: 2, SupplierID: 1, Kind: Conversion, Factor: &b, Active: true},
			}
			g, err := NewNormsGraph(utilities, edges)
			if err != nil {
				return false
			}
			res, err := Resolve(ResolveInput{
				Graph:        g,
				Availability: NewAvailabilityView(nil, nil, nil),
				Formulas:     NewFormulaEvaluator(),
				Demand:       map[UtilityID]DemandRecord{1: {UtilityID: 1, Process: decimal.NewFromFloat(demand)}},
				Period:       202604,
			}, ResolveOptions{})
			if err != nil {
				return false
			}
			want := demand / (1 - fa*fb)
			got := res.Quantity(1).InexactFloat64()
			return got > want-0.01 && got < want+0.01
		},
		gen.Float64Range(0.01, 0.45),
		gen.Float64Range(0.01, 0.45),
		gen.Float64Range(1, 1e4),
	))

	// Property 4: resolution is a pure function, two runs on the same input
	// produce bit-identical vectors.
	properties.Property("resolution is deterministic", prop.ForAll(
		func(lp, mp, shp float64) bool {
			fx := NewSteamNetworkFixture()
			fx.Demand = map[UtilityID]DemandRecord{
				FxLPDis:  {UtilityID: FxLPDis, Process: decimal.NewFromFloat(lp)},
				FxMPDis:  {UtilityID: FxMPDis, Process: decimal.NewFromFloat(mp)},
				FxSHPDis: {UtilityID: FxSHPDis, Process: decimal.NewFromFloat(shp)},
			}
			in, err := fx.Input()
			if err != nil {
				return false
			}
			first, err1 := Resolve(in, ResolveOptions{})
			second, err2 := Resolve(in, ResolveOptions{})
			if err1 != nil || err2 != nil {
				return (err1 == nil) == (err2 == nil)
			}
			for uid, q := range first.Quantities {
				if q.String() != second.Quantities[uid].String() {
					return false
				}
			}
			return first.Iterations == second.Iterations
		},
		gen.Float64Range(0, 20000),
		gen.Float64Range(0, 15000),
		gen.Float64Range(0, 10000),
	))

	properties.TestingRun(t)
}
