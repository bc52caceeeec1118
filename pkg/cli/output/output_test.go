package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/utilbalance/pkg/norms"
)

func sampleReports(t *testing.T) []*norms.PeriodReport {
	t.Helper()
	fx := norms.NewSteamNetworkFixture()
	in, err := fx.Input()
	require.NoError(t, err)
	res, err := norms.Resolve(in, norms.ResolveOptions{})
	require.NoError(t, err)
	return []*norms.PeriodReport{norms.Aggregate(in.Graph, fx.Demand, res, nil)}
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReports(t), "text"))

	out := buf.String()
	assert.Contains(t, out, "Period 202604")
	assert.Contains(t, out, "NATURAL_GAS")
	assert.Contains(t, out, "Warnings:")
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReports(t), "json"))

	var decoded []struct {
		Period int64 `json:"period"`
		Rows   []struct {
			Code     string `json:"code"`
			Resolved string `json:"resolved"`
		} `json:"rows"`
		Warnings []struct {
			Kind string `json:"kind"`
		} `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, int64(202604), decoded[0].Period)
	assert.NotEmpty(t, decoded[0].Rows)
	require.NotEmpty(t, decoded[0].Warnings)
	assert.Equal(t, "RedundantResidual", decoded[0].Warnings[0].Kind)
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	reports := sampleReports(t)
	require.NoError(t, Write(&buf, reports, "csv"))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+len(reports[0].Rows))
	assert.Equal(t, "period_id", records[0][0])
	assert.Equal(t, "202604", records[1][0])
}

func TestWrite_SkipsFailedPeriods(t *testing.T) {
	var buf bytes.Buffer
	reports := sampleReports(t)
	reports = append(reports, nil)
	require.NoError(t, Write(&buf, reports, "csv"))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1+len(reports[0].Rows))
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, sampleReports(t), "xml")
	assert.Error(t, err)
}
