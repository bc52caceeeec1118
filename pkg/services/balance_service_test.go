package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/utilbalance/pkg/norms"
)

func fixtureSnapshot(periods ...norms.PeriodID) *norms.Snapshot {
	fx := norms.NewSteamNetworkFixture()
	snap := &norms.Snapshot{
		Utilities:    fx.Utilities,
		Edges:        fx.Edges,
		Assets:       fx.Assets,
		Bindings:     fx.Bindings,
		Demand:       make(map[norms.PeriodID]map[norms.UtilityID]norms.DemandRecord),
		Availability: make(map[norms.PeriodID][]norms.AvailabilityRecord),
		Coefficients: make(map[norms.PeriodID]map[norms.AssetID]norms.AssetCoefficients),
	}
	for _, p := range periods {
		snap.Demand[p] = fx.Demand
		snap.Availability[p] = fx.Records
		snap.Coefficients[p] = fx.Coefficients
	}
	return snap
}

func TestBalanceService_ResolvePeriod(t *testing.T) {
	snap := fixtureSnapshot(202604)
	svc := NewBalanceService(Options{})

	report, err := svc.ResolvePeriod(context.Background(), snap, 202604)
	require.NoError(t, err)
	assert.Equal(t, norms.PeriodID(202604), report.Period)
	assert.Len(t, report.Rows, len(snap.Utilities))
	assert.Greater(t, report.Iterations, 0)
}

func TestBalanceService_ResolvePeriodWithoutDemand(t *testing.T) {
	snap := fixtureSnapshot(202604)
	svc := NewBalanceService(Options{})

	_, err := svc.ResolvePeriod(context.Background(), snap, 209912)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no demand")
}

func TestBalanceService_ResolvePeriodsOrdered(t *testing.T) {
	periods := []norms.PeriodID{202604, 202605, 202606, 202607}
	snap := fixtureSnapshot(periods...)
	svc := NewBalanceService(Options{Workers: 2})

	reports, err := svc.ResolvePeriods(context.Background(), snap, periods)
	require.NoError(t, err)
	require.Len(t, reports, len(periods))
	for i, p := range periods {
		require.NotNil(t, reports[i])
		assert.Equal(t, p, reports[i].Period, "reports must come back in request order")
	}

	// Same snapshot every month: identical quantities across periods.
	for i := range reports[0].Rows {
		assert.True(t, reports[0].Rows[i].Resolved.Equal(reports[1].Rows[i].Resolved))
	}
}

func TestBalanceService_PartialFailure(t *testing.T) {
	snap := fixtureSnapshot(202604, 202605)
	svc := NewBalanceService(Options{})

	// 202699 has no demand; the other two periods must still resolve.
	reports, err := svc.ResolvePeriods(context.Background(), snap, []norms.PeriodID{202604, 202699, 202605})
	require.Error(t, err)
	require.Len(t, reports, 3)
	assert.NotNil(t, reports[0])
	assert.Nil(t, reports[1])
	assert.NotNil(t, reports[2])
	assert.Contains(t, err.Error(), "202699")
}

func TestBalanceService_CancelledContext(t *testing.T) {
	periods := []norms.PeriodID{202604, 202605}
	snap := fixtureSnapshot(periods...)
	svc := NewBalanceService(Options{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ResolvePeriods(ctx, snap, periods)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBalanceService_ReferenceNorms(t *testing.T) {
	snap := fixtureSnapshot(202604)
	snap.Demand[202604][norms.FxGT2Power] = norms.DemandRecord{
		UtilityID: norms.FxGT2Power,
		Process:   norms.MustDecimal("8097740"),
	}
	svc := NewBalanceService(Options{
		References: map[norms.UtilityID]norms.ReferenceNorm{
			norms.FxNaturalGas: {DriverUtilityID: norms.FxGT2Power, Norm: norms.MustDecimal("0.01026")},
		},
	})

	report, err := svc.ResolvePeriod(context.Background(), snap, 202604)
	require.NoError(t, err)

	for _, row := range report.Rows {
		if row.UtilityID == norms.FxNaturalGas {
			require.NotNil(t, row.DerivedNorm)
			require.NotNil(t, row.DeviationPct)
			return
		}
	}
	t.Fatal("natural gas row missing from report")
}

func TestBalanceService_InvalidGraph(t *testing.T) {
	snap := fixtureSnapshot(202604)
	snap.Edges = append(snap.Edges, norms.NormEdge{
		ID: 99, ConsumerID: 12345, SupplierID: norms.FxBFW, Kind: norms.Conversion,
		Factor: norms.DecimalPtr("1"), Active: true,
	})
	svc := NewBalanceService(Options{})

	_, err := svc.ResolvePeriods(context.Background(), snap, []norms.PeriodID{202604})
	var verr *norms.ValidationError
	require.ErrorAs(t, err, &verr)
}
