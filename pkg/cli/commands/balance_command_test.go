package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "utilities.csv", `utility_id,utility_code,utility_name,uom,plant_id,utility_type,is_distribution
1,SHP_STEAM_DIS,SHP Steam_Dis,MT,1,STEAM,true
2,HRSG2_SHP_STEAM,HRSG2 SHP Steam,MT,1,STEAM,false
3,NATURAL_GAS,Natural Gas,MMBTU,1,GAS,false
`)
	writeFile(t, dir, "norms.csv", `norm_id,consumer_utility_id,supplier_utility_id,account_type_id,norm_type,factor,formula_id,active,description
1,1,2,10,DISTRIBUTION,,,true,HRSG2 takes the full SHP demand
2,2,3,20,CONVERSION,2.8064,,true,HRSG2 gas burn
`)
	writeFile(t, dir, "assets.csv", `asset_id,asset_name,asset_type,steam_type,min_capacity_mt,max_capacity_mt,efficiency,linked_power_asset_id,is_always_available,priority
2,HRSG2,HRSG,SHP,0,75,0.92,,true,1
`)
	writeFile(t, dir, "bindings.csv", `utility_id,asset_id
2,2
`)
	writeFile(t, dir, "demands.csv", `period_id,utility_id,process_qty,fixed_qty
202604,1,12000,1000
`)
	writeFile(t, dir, "availability.csv", `period_id,asset_id,available,operational_hours
202604,2,true,720
`)

	writeFile(t, dir, "run.yaml", `
periods: [202604]
source:
  kind: csv
  dir: `+dir+`
`)
	return dir
}

func TestBalanceCommand_Execute(t *testing.T) {
	dir := writeScenario(t)

	var buf bytes.Buffer
	cmd := NewBalanceCommand(Config{
		ConfigFile: filepath.Join(dir, "run.yaml"),
		Format:     "csv",
	}, &buf)

	require.NoError(t, cmd.Execute(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "period_id")
	assert.Contains(t, out, "NATURAL_GAS")
	assert.Contains(t, out, "202604")
}

func TestBalanceCommand_MissingConfig(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewBalanceCommand(Config{}, &buf)
	assert.Error(t, cmd.Execute(context.Background()))
}

func TestBalanceCommand_Help(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewBalanceCommand(Config{Help: true}, &buf)
	require.NoError(t, cmd.Execute(context.Background()))
	assert.Contains(t, buf.String(), "utilbalance")
}

func TestBalanceCommand_BadSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "run.yaml", `
periods: [202604]
source:
  kind: csv
  dir: `+dir+`
`)
	var buf bytes.Buffer
	cmd := NewBalanceCommand(Config{ConfigFile: filepath.Join(dir, "run.yaml")}, &buf)
	assert.Error(t, cmd.Execute(context.Background()))
}
