package norms

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Resolution defaults, matching the source system's iteration loop.
const DefaultMaxIterations = 50

// DefaultTolerance is the per-utility quantity delta below which the
// fixed-point iteration is considered converged.
var DefaultTolerance = decimal.New(1, -6) // 1e-6

// ResolveOptions tune a single resolution. Zero values select the defaults.
type ResolveOptions struct {
	Tolerance     decimal.Decimal
	MaxIterations int
}

func (o ResolveOptions) withDefaults() ResolveOptions {
	if o.Tolerance.Sign() <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// ResolveInput is one immutable snapshot for one period. Inputs must not be
// mutated while the resolution is in flight; the resolver itself never
// mutates them.
type ResolveInput struct {
	Graph        *NormsGraph
	Availability *AvailabilityView
	Formulas     *FormulaEvaluator
	Demand       map[UtilityID]DemandRecord
	Coefficients map[AssetID]AssetCoefficients
	Period       PeriodID
}

// Result is the resolved quantity vector for one period plus diagnostics.
type Result struct {
	Period     PeriodID
	Quantities map[UtilityID]decimal.Decimal
	Warnings   []Warning
	Iterations int
}

// Quantity returns the resolved quantity for a utility, zero if absent.
func (r *Result) Quantity(id UtilityID) decimal.Decimal {
	return r.Quantities[id]
}

// Resolve propagates the seed demand through the norms graph by iterative
// fixed-point passes until every utility's quantity is stable within the
// tolerance. The dependency graph may be cyclic; a cycle whose effective
// factor product is below one contracts to a fixed point, one at or above
// one exceeds the iteration cap and is reported as a ConvergenceError
// carrying the last vector. Resolution is a pure, deterministic function of
// its inputs.
func Resolve(in ResolveInput, opts ResolveOptions) (*Result, error) {
	opts = opts.withDefaults()
	g := in.Graph
	view := in.Availability
	n := g.Len()

	if err := validateInput(in); err != nil {
		return nil, err
	}

	seed := make([]decimal.Decimal, n)
	for uid, d := range in.Demand {
		i, ok := g.index[uid]
		if !ok {
			continue // validated above
		}
		seed[i] = d.Total()
	}

	qty := make([]decimal.Decimal, n)
	copy(qty, seed)

	var (
		converged    bool
		iterations   int
		lastMaxDelta decimal.Decimal
		lastMaxIdx   int
		passWarnings map[string]Warning
	)

	for it := 1; it <= opts.MaxIterations; it++ {
		next := make([]decimal.Decimal, n)
		copy(next, seed)
		credit := make([]decimal.Decimal, n)
		passWarnings = make(map[string]Warning)

		for ci := range g.utilities {
			q := qty[ci]
			if q.Sign() <= 0 {
				continue
			}
			edges := g.suppliers[ci]
			if len(edges) == 0 {
				continue
			}
			consumer := g.utilities[ci]

			// Distribution: split q among available suppliers proportional
			// to their stated (or residual-derived) factors, renormalized
			// over the available subset. Priority never enters the weights.
			weightSum := decimal.Zero
			hasDist := false
			for _, se := range edges {
				if se.kind != Distribution {
					continue
				}
				hasDist = true
				if view.UtilityAvailable(g.utilities[se.supplier].ID) {
					weightSum = weightSum.Add(se.factor)
				}
			}
			if hasDist {
				if weightSum.Sign() > 0 {
					for _, se := range edges {
						if se.kind != Distribution {
							continue
						}
						sup := g.utilities[se.supplier]
						if !view.UtilityAvailable(sup.ID) {
							continue
						}
						share := q.Mul(se.factor).Div(weightSum)
						next[se.supplier] = next[se.supplier].Add(share)
					}
				} else {
					w := Warning{
						Kind:      WarnNoAvailableSupplier,
						UtilityID: consumer.ID,
						Detail:    fmt.Sprintf("consumer %s: no available distribution supplier, %s left unplaced", consumer.Code, q.String()),
					}
					passWarnings[warnKey(w)] = w
				}
			}

			// Conversion: accumulate factor x q as gross demand; negative
			// factors accumulate as credits. Formula-driven edges replace
			// the plain factor with the evaluator on the consumer's own
			// current quantity.
			for _, se := range edges {
				if se.kind != Conversion {
					continue
				}
				if se.formulaID != "" {
					assetID, _ := view.BoundAsset(consumer.ID)
					req, err := in.Formulas.Evaluate(se.formulaID, q, in.Coefficients[assetID])
					if err != nil {
						return nil, fmt.Errorf("formula %q for %s: %w", se.formulaID, consumer.Code, err)
					}
					next[se.supplier] = next[se.supplier].Add(req)
					continue
				}
				contribution := se.factor.Mul(q)
				if contribution.Sign() < 0 {
					credit[se.supplier] = credit[se.supplier].Add(contribution.Neg())
				} else {
					next[se.supplier] = next[se.supplier].Add(contribution)
				}
			}
		}

		// Net of credits; a requirement below zero clamps to zero and is
		// surfaced, never propagated as negative demand.
		for i := range next {
			if credit[i].Sign() == 0 {
				continue
			}
			net := next[i].Sub(credit[i])
			if net.IsNegative() {
				u := g.utilities[i]
				w := Warning{
					Kind:      WarnNegativeRequirement,
					UtilityID: u.ID,
					Detail:    fmt.Sprintf("utility %s: credits exceed gross demand by %s, clamped to 0", u.Code, net.Neg().String()),
				}
				passWarnings[warnKey(w)] = w
				net = decimal.Zero
			}
			next[i] = net
		}

		maxDelta := decimal.Zero
		maxIdx := 0
		for i := range next {
			d := next[i].Sub(qty[i]).Abs()
			if d.GreaterThan(maxDelta) {
				maxDelta = d
				maxIdx = i
			}
		}
		qty = next
		iterations = it
		lastMaxDelta = maxDelta
		lastMaxIdx = maxIdx
		if maxDelta.LessThan(opts.Tolerance) {
			converged = true
			break
		}
	}

	if !converged {
		return nil, &ConvergenceError{
			Period:          in.Period,
			Iterations:      iterations,
			MaxDelta:        lastMaxDelta,
			MaxDeltaUtility: g.utilities[lastMaxIdx].ID,
			LastVector:      vectorMap(g, qty),
		}
	}

	result := &Result{
		Period:     in.Period,
		Quantities: vectorMap(g, qty),
		Iterations: iterations,
	}
	result.Warnings = append(result.Warnings, g.Warnings()...)
	result.Warnings = append(result.Warnings, view.Warnings()...)
	for _, w := range sortedWarnings(passWarnings) {
		result.Warnings = append(result.Warnings, w)
	}

	// Capacity check: never silently cap, report the shortfall instead.
	for i := range g.utilities {
		u := g.utilities[i]
		asset, ok := view.AssetForUtility(u.ID)
		if !ok {
			continue
		}
		capacity := asset.MaxCapacityMT.Mul(view.OperationalHours(asset.ID))
		if qty[i].GreaterThan(capacity) {
			return nil, &CapacityExceededError{
				Period:    in.Period,
				AssetID:   asset.ID,
				AssetName: asset.Name,
				UtilityID: u.ID,
				Resolved:  qty[i],
				Capacity:  capacity,
				Shortfall: qty[i].Sub(capacity),
				Result:    result,
			}
		}
	}

	return result, nil
}

// validateInput fails fast on inputs that cannot be solved: demand for
// unknown utilities, formula edges with no registered formula, or
// formula-driven consumers lacking an asset binding or period coefficients.
func validateInput(in ResolveInput) error {
	var issues []string
	g := in.Graph

	for uid := range in.Demand {
		if _, ok := g.Utility(uid); !ok {
			issues = append(issues, fmt.Sprintf("demand references unknown utility %d", uid))
		}
	}

	for ci := range g.utilities {
		consumer := g.utilities[ci]
		for _, se := range g.suppliers[ci] {
			if se.formulaID == "" {
				continue
			}
			if in.Formulas == nil || !in.Formulas.Has(se.formulaID) {
				issues = append(issues, fmt.Sprintf("consumer %s: formula %q is not registered", consumer.Code, se.formulaID))
				continue
			}
			assetID, ok := in.Availability.BoundAsset(consumer.ID)
			if !ok {
				issues = append(issues, fmt.Sprintf("formula-driven consumer %s is not bound to an asset", consumer.Code))
				continue
			}
			if _, ok := in.Coefficients[assetID]; !ok {
				issues = append(issues, fmt.Sprintf("formula-driven consumer %s: no coefficients for asset %d this period", consumer.Code, assetID))
			}
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func vectorMap(g *NormsGraph, qty []decimal.Decimal) map[UtilityID]decimal.Decimal {
	out := make(map[UtilityID]decimal.Decimal, len(qty))
	for i := range g.utilities {
		out[g.utilities[i].ID] = qty[i]
	}
	return out
}

func warnKey(w Warning) string {
	return fmt.Sprintf("%d/%d/%d", w.Kind, w.UtilityID, w.AssetID)
}

func sortedWarnings(m map[string]Warning) []Warning {
	out := make([]Warning, 0, len(m))
	for _, w := range m {
		out = append(out, w)
	}
	// Deterministic order: identical inputs must yield identical output.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.UtilityID != b.UtilityID {
			return a.UtilityID < b.UtilityID
		}
		return a.AssetID < b.AssetID
	})
	return out
}
