package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/plantops/utilbalance/pkg/norms"
)

// SnapshotSource loads the immutable input snapshot a resolution runs on.
// The memory, csv and postgres repositories all satisfy it.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) (*norms.Snapshot, error)
}

// Options tune the balance service. Zero values select the resolver
// defaults and a worker per period.
type Options struct {
	Resolve    norms.ResolveOptions
	Workers    int
	References map[norms.UtilityID]norms.ReferenceNorm
}

// BalanceService orchestrates resolutions: it builds the graph once per
// snapshot, assembles per-period inputs and aggregates the results into
// reports. Multi-period runs fan out over a bounded worker pool; the graph
// and snapshot are shared read-only, everything mutable is per period.
type BalanceService struct {
	opts Options
}

// NewBalanceService creates a service with the given options.
func NewBalanceService(opts Options) *BalanceService {
	return &BalanceService{opts: opts}
}

// ResolvePeriod resolves one period of the snapshot and aggregates the
// result into a report.
func (s *BalanceService) ResolvePeriod(ctx context.Context, snap *norms.Snapshot, period norms.PeriodID) (*norms.PeriodReport, error) {
	graph, err := norms.NewNormsGraph(snap.Utilities, snap.Edges)
	if err != nil {
		return nil, fmt.Errorf("period %d: %w", period, err)
	}
	return s.resolveOne(ctx, graph, snap, period)
}

// ResolvePeriods resolves every period concurrently. Reports are returned in
// the order the periods were given, nil where that period failed; failures
// are joined into the returned error. One failed period never blocks the
// others.
func (s *BalanceService) ResolvePeriods(ctx context.Context, snap *norms.Snapshot, periods []norms.PeriodID) ([]*norms.PeriodReport, error) {
	graph, err := norms.NewNormsGraph(snap.Utilities, snap.Edges)
	if err != nil {
		return nil, err
	}

	workers := s.opts.Workers
	if workers <= 0 || workers > len(periods) {
		workers = len(periods)
	}

	reports := make([]*norms.PeriodReport, len(periods))
	errs := make([]error, len(periods))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, period := range periods {
		wg.Add(1)
		go func(i int, period norms.PeriodID) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("period %d: %w", period, err)
				return
			}
			report, err := s.resolveOne(ctx, graph, snap, period)
			if err != nil {
				errs[i] = err
				return
			}
			reports[i] = report
		}(i, period)
	}
	wg.Wait()

	return reports, errors.Join(errs...)
}

func (s *BalanceService) resolveOne(_ context.Context, graph *norms.NormsGraph, snap *norms.Snapshot, period norms.PeriodID) (*norms.PeriodReport, error) {
	demand := snap.Demand[period]
	if len(demand) == 0 {
		return nil, fmt.Errorf("period %d: no demand records", period)
	}

	view := norms.NewAvailabilityView(snap.Assets, snap.Availability[period], snap.Bindings)
	res, err := norms.Resolve(norms.ResolveInput{
		Graph:        graph,
		Availability: view,
		Formulas:     norms.NewFormulaEvaluator(),
		Demand:       demand,
		Coefficients: snap.Coefficients[period],
		Period:       period,
	}, s.opts.Resolve)
	if err != nil {
		return nil, fmt.Errorf("period %d: %w", period, err)
	}

	return norms.Aggregate(graph, demand, res, s.opts.References), nil
}
