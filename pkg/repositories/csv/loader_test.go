package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/utilbalance/pkg/norms"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeScenario(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, dir, "utilities.csv", `utility_id,utility_code,utility_name,uom,plant_id,utility_type,is_distribution
1,SHP_STEAM_DIS,SHP Steam_Dis,MT,1,STEAM,true
2,HRSG2_SHP_STEAM,HRSG2 SHP Steam,MT,1,STEAM,false
3,HRSG3_SHP_STEAM,HRSG3 SHP Steam,MT,1,STEAM,false
4,NATURAL_GAS,Natural Gas,MMBTU,1,GAS,false
5,GT2_POWERGEN,GT2 Power Generation,KWH,1,POWER,false
`)
	writeFile(t, dir, "norms.csv", `norm_id,consumer_utility_id,supplier_utility_id,account_type_id,norm_type,factor,formula_id,active,description
1,1,2,10,DISTRIBUTION,0.4934,,true,HRSG2 share
2,1,3,10,DISTRIBUTION,,,true,HRSG3 residual share
3,2,4,20,CONVERSION,2.8064,,true,HRSG2 gas burn
4,5,4,20,CONVERSION,,gas_turbine_net_fuel,true,GT2 net fuel
`)
	writeFile(t, dir, "assets.csv", `asset_id,asset_name,asset_type,steam_type,min_capacity_mt,max_capacity_mt,efficiency,linked_power_asset_id,is_always_available,priority
2,HRSG2,HRSG,SHP,0,75,0.92,102,false,1
3,HRSG3,HRSG,SHP,0,75,0.92,,true,2
`)
	writeFile(t, dir, "bindings.csv", `utility_id,asset_id
2,2
3,3
5,102
`)
	writeFile(t, dir, "demands.csv", `period_id,utility_id,process_qty,fixed_qty
202604,1,12000,1000
202604,5,8097740,0
`)
	writeFile(t, dir, "availability.csv", `period_id,asset_id,available,operational_hours
202604,102,true,720
`)
	writeFile(t, dir, "coefficients.csv", `period_id,asset_id,heat_rate,free_steam_factor
202604,102,4084.94,1.97
`)
}

func TestLoader_LoadSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir)

	snap, err := NewLoader(dir).LoadSnapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Utilities, 5)
	assert.Equal(t, "SHP_STEAM_DIS", snap.Utilities[0].Code)
	assert.Equal(t, norms.Steam, snap.Utilities[0].Type)
	assert.True(t, snap.Utilities[0].IsDistribution)
	assert.Equal(t, norms.Power, snap.Utilities[4].Type)

	require.Len(t, snap.Edges, 4)
	require.NotNil(t, snap.Edges[0].Factor)
	assert.True(t, snap.Edges[0].Factor.Equal(norms.MustDecimal("0.4934")))
	assert.Nil(t, snap.Edges[1].Factor, "empty factor column is the residual sentinel")
	assert.Equal(t, norms.FormulaGasTurbineNetFuel, snap.Edges[3].FormulaID)
	assert.Equal(t, int64(20), snap.Edges[3].AccountTypeID)

	require.Len(t, snap.Assets, 2)
	require.NotNil(t, snap.Assets[0].LinkedPowerAssetID)
	assert.Equal(t, norms.AssetID(102), *snap.Assets[0].LinkedPowerAssetID)
	assert.Nil(t, snap.Assets[1].LinkedPowerAssetID)
	assert.True(t, snap.Assets[1].IsAlwaysAvailable)

	assert.Equal(t, norms.AssetID(102), snap.Bindings[5])

	d := snap.Demand[202604][5]
	assert.True(t, d.Process.Equal(norms.MustDecimal("8097740")))
	require.Len(t, snap.Availability[202604], 1)
	assert.True(t, snap.Availability[202604][0].Available)

	c := snap.Coefficients[202604][102]
	assert.True(t, c.HeatRate.Equal(norms.MustDecimal("4084.94")))
	assert.True(t, c.FreeSteamFactor.Equal(norms.MustDecimal("1.97")))
}

func TestLoader_SnapshotResolves(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir)

	snap, err := NewLoader(dir).LoadSnapshot(context.Background())
	require.NoError(t, err)

	g, err := norms.NewNormsGraph(snap.Utilities, snap.Edges)
	require.NoError(t, err)
	view := norms.NewAvailabilityView(snap.Assets, snap.Availability[202604], snap.Bindings)
	res, err := norms.Resolve(norms.ResolveInput{
		Graph:        g,
		Availability: view,
		Formulas:     norms.NewFormulaEvaluator(),
		Demand:       snap.Demand[202604],
		Coefficients: snap.Coefficients[202604],
		Period:       202604,
	}, norms.ResolveOptions{})
	require.NoError(t, err)
	assert.True(t, res.Quantity(4).Sign() > 0, "gas requirement should flow from HRSG burn and GT2 formula")
}

func TestLoader_OptionalFilesMayBeAbsent(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "bindings.csv")))
	require.NoError(t, os.Remove(filepath.Join(dir, "coefficients.csv")))

	snap, err := NewLoader(dir).LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Bindings)
	assert.Empty(t, snap.Coefficients)
}

func TestLoader_MissingRequiredFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "norms.csv")))

	_, err := NewLoader(dir).LoadSnapshot(context.Background())
	assert.Error(t, err)
}

func TestLoader_HeaderMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir)
	writeFile(t, dir, "demands.csv", `period,utility,process,fixed
202604,1,1,1
`)

	_, err := NewLoader(dir).LoadSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header mismatch")
}

func TestLoader_BadRows(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "bad_factor",
			file: "norms.csv",
			content: `norm_id,consumer_utility_id,supplier_utility_id,account_type_id,norm_type,factor,formula_id,active,description
1,1,2,10,DISTRIBUTION,not-a-number,,true,broken
`,
		},
		{
			name: "bad_norm_type",
			file: "norms.csv",
			content: `norm_id,consumer_utility_id,supplier_utility_id,account_type_id,norm_type,factor,formula_id,active,description
1,1,2,10,TRANSFER,0.5,,true,broken
`,
		},
		{
			name: "bad_utility_type",
			file: "utilities.csv",
			content: `utility_id,utility_code,utility_name,uom,plant_id,utility_type,is_distribution
1,X,X,MT,1,PLASMA,false
`,
		},
		{
			name: "bad_asset_type",
			file: "assets.csv",
			content: `asset_id,asset_name,asset_type,steam_type,min_capacity_mt,max_capacity_mt,efficiency,linked_power_asset_id,is_always_available,priority
1,X,BOILER,SHP,0,75,0.92,,true,1
`,
		},
		{
			name: "wrong_column_count",
			file: "demands.csv",
			content: `period_id,utility_id,process_qty,fixed_qty
202604,1,100
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeScenario(t, dir)
			writeFile(t, dir, tt.file, tt.content)

			_, err := NewLoader(dir).LoadSnapshot(context.Background())
			assert.Error(t, err)
		})
	}
}
