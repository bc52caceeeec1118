package norms

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// factorEpsilon is the tolerance applied when checking that DISTRIBUTION
// factors for a consumer sum to one.
var factorEpsilon = decimal.New(1, -6) // 1e-6

// supplierEdge is the arena form of a norm edge: supplier addressed by dense
// index, residual factors already derived.
type supplierEdge struct {
	supplier  int
	kind      EdgeKind
	factor    decimal.Decimal
	residual  bool
	formulaID FormulaID
}

// SupplierRef is the public view of one outgoing edge of a consumer.
type SupplierRef struct {
	Supplier  Utility
	Kind      EdgeKind
	Factor    decimal.Decimal
	Residual  bool
	FormulaID FormulaID
}

// NormsGraph is the immutable in-memory representation of utilities and the
// norm edges between them. Utilities live in an arena addressed by dense
// integer indexes; edges are insertion-ordered per consumer. The graph may
// contain cycles; the resolver converges on them by fixed-point iteration.
type NormsGraph struct {
	utilities []Utility
	index     map[UtilityID]int
	byCode    map[string]int
	suppliers [][]supplierEdge
	warnings  []Warning
}

// NewNormsGraph builds and validates a graph from flat master data. Inactive
// edges are excluded from solving but must still reference known utilities.
// Any violation is reported as a ValidationError before solving begins.
func NewNormsGraph(utilities []Utility, edges []NormEdge) (*NormsGraph, error) {
	g := &NormsGraph{
		utilities: make([]Utility, len(utilities)),
		index:     make(map[UtilityID]int, len(utilities)),
		byCode:    make(map[string]int, len(utilities)),
		suppliers: make([][]supplierEdge, len(utilities)),
	}
	copy(g.utilities, utilities)

	var issues []string
	for i, u := range g.utilities {
		if _, dup := g.index[u.ID]; dup {
			issues = append(issues, fmt.Sprintf("duplicate utility id %d", u.ID))
			continue
		}
		g.index[u.ID] = i
		g.byCode[u.Code] = i
	}

	// Group active edges by consumer, preserving source order. The order
	// affects only which edge is the residual, never the numeric result.
	type pending struct {
		edge NormEdge
		sup  int
	}
	grouped := make(map[int][]pending)
	var consumerOrder []int
	seen := make(map[int]bool)
	for _, e := range edges {
		ci, ok := g.index[e.ConsumerID]
		if !ok {
			issues = append(issues, fmt.Sprintf("norm %d references unknown consumer utility %d", e.ID, e.ConsumerID))
			continue
		}
		si, ok := g.index[e.SupplierID]
		if !ok {
			issues = append(issues, fmt.Sprintf("norm %d references unknown supplier utility %d", e.ID, e.SupplierID))
			continue
		}
		if !e.Active {
			continue
		}
		if !seen[ci] {
			seen[ci] = true
			consumerOrder = append(consumerOrder, ci)
		}
		grouped[ci] = append(grouped[ci], pending{edge: e, sup: si})
	}

	one := decimal.NewFromInt(1)
	for _, ci := range consumerOrder {
		group := grouped[ci]
		consumer := g.utilities[ci]

		knownSum := decimal.Zero
		residualCount := 0
		for _, p := range group {
			e := p.edge
			switch e.Kind {
			case Distribution:
				if e.Factor == nil {
					residualCount++
					continue
				}
				if e.Factor.IsNegative() {
					issues = append(issues, fmt.Sprintf("consumer %s: negative distribution factor %s on norm %d",
						consumer.Code, e.Factor.String(), e.ID))
					continue
				}
				knownSum = knownSum.Add(*e.Factor)
			case Conversion:
				if e.Factor == nil && e.FormulaID == "" {
					issues = append(issues, fmt.Sprintf("consumer %s: conversion norm %d has neither factor nor formula",
						consumer.Code, e.ID))
				}
			}
		}
		if residualCount > 1 {
			issues = append(issues, fmt.Sprintf("consumer %s: %d distribution norms with null factor, at most one residual permitted",
				consumer.Code, residualCount))
		}
		if knownSum.GreaterThan(one.Add(factorEpsilon)) {
			issues = append(issues, fmt.Sprintf("consumer %s: known distribution factors sum to %s, exceeding 1",
				consumer.Code, knownSum.String()))
		}

		residual := one.Sub(knownSum)
		if residual.IsNegative() {
			residual = decimal.Zero
		}

		for _, p := range group {
			e := p.edge
			se := supplierEdge{supplier: p.sup, kind: e.Kind, formulaID: e.FormulaID}
			switch {
			case e.Kind == Distribution && e.Factor == nil:
				se.factor = residual
				se.residual = true
				if residual.Abs().LessThanOrEqual(factorEpsilon) {
					g.warnings = append(g.warnings, Warning{
						Kind:      WarnRedundantResidual,
						UtilityID: consumer.ID,
						Detail: fmt.Sprintf("consumer %s: known factors already sum to 1, residual share for %s derived to 0",
							consumer.Code, g.utilities[p.sup].Code),
					})
				}
			case e.Factor != nil:
				se.factor = *e.Factor
			}
			g.suppliers[ci] = append(g.suppliers[ci], se)
		}
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return g, nil
}

// Len returns the number of utilities in the graph.
func (g *NormsGraph) Len() int { return len(g.utilities) }

// Utility looks up a utility by id.
func (g *NormsGraph) Utility(id UtilityID) (Utility, bool) {
	i, ok := g.index[id]
	if !ok {
		return Utility{}, false
	}
	return g.utilities[i], true
}

// UtilityByCode looks up a utility by code.
func (g *NormsGraph) UtilityByCode(code string) (Utility, bool) {
	i, ok := g.byCode[code]
	if !ok {
		return Utility{}, false
	}
	return g.utilities[i], true
}

// SuppliersOf returns the outgoing edges of a consumer in stable source
// order, residual factors already derived.
func (g *NormsGraph) SuppliersOf(consumer UtilityID) []SupplierRef {
	ci, ok := g.index[consumer]
	if !ok {
		return nil
	}
	refs := make([]SupplierRef, 0, len(g.suppliers[ci]))
	for _, se := range g.suppliers[ci] {
		refs = append(refs, SupplierRef{
			Supplier:  g.utilities[se.supplier],
			Kind:      se.kind,
			Factor:    se.factor,
			Residual:  se.residual,
			FormulaID: se.formulaID,
		})
	}
	return refs
}

// IsFormulaDriven reports whether any outgoing edge of the consumer is
// backed by a FormulaEvaluator entry instead of a plain conversion factor.
func (g *NormsGraph) IsFormulaDriven(consumer UtilityID) bool {
	ci, ok := g.index[consumer]
	if !ok {
		return false
	}
	for _, se := range g.suppliers[ci] {
		if se.formulaID != "" {
			return true
		}
	}
	return false
}

// Warnings returns diagnostics recorded during construction, such as
// residual factors that derived to zero.
func (g *NormsGraph) Warnings() []Warning { return g.warnings }
