package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulseboard/insights-engine/pkg/config"
	"github.com/pulseboard/insights-engine/pkg/models"
	"github.com/pulseboard/insights-engine/pkg/testhelpers"
)

func newTestProfiler() *DataProfiler {
	return NewDataProfiler(config.Default(), zap.NewNop())
}

func TestDataProfiler_Profile(t *testing.T) {
	rows := testhelpers.Records(
		[]string{"region", "revenue"},
		[]any{"east", 100},
		[]any{"west", 200},
		[]any{"east", 300},
	)

	profile := newTestProfiler().Profile([]string{"region", "revenue"}, rows)
	require.NotNil(t, profile)

	assert.Equal(t, 3, profile.RowCount)
	assert.Equal(t, 2, profile.ColumnCount)
	require.Len(t, profile.Columns, 2)

	region := profile.Columns[0]
	assert.Equal(t, "region", region.Name)
	assert.Equal(t, models.DataTypeString, region.DataType)
	assert.Equal(t, 2, region.UniqueCount)
	require.NotNil(t, region.Categorical)
	assert.Nil(t, region.Numeric)

	revenue := profile.Columns[1]
	assert.Equal(t, models.DataTypeNumeric, revenue.DataType)
	require.NotNil(t, revenue.Numeric)
	assert.Equal(t, 600.0, revenue.Numeric.Sum)
	assert.Nil(t, revenue.Categorical)
}

func TestDataProfiler_ColumnOrderPreserved(t *testing.T) {
	rows := testhelpers.Records(
		[]string{"b", "a", "c"},
		[]any{1, 2, 3},
	)

	profile := newTestProfiler().Profile([]string{"b", "a", "c"}, rows)

	got := make([]string, 0, len(profile.Columns))
	for _, c := range profile.Columns {
		got = append(got, c.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, got)
}

func TestDataProfiler_Warnings(t *testing.T) {
	// 20% nulls in "email", constant "status".
	rows := testhelpers.Records(
		[]string{"email", "status"},
		[]any{"a@x.com", "active"},
		[]any{nil, "active"},
		[]any{"b@x.com", "active"},
		[]any{"c@x.com", "active"},
		[]any{"d@x.com", "active"},
	)

	profile := newTestProfiler().Profile([]string{"email", "status"}, rows)

	require.Len(t, profile.Warnings, 3)
	assert.Contains(t, profile.Warnings[0], "email")
	assert.Contains(t, profile.Warnings[0], "null")
	assert.Contains(t, profile.Warnings[1], "status")
	assert.Contains(t, profile.Warnings[1], "constant")
	assert.Contains(t, profile.Warnings[2], "Small dataset")
}

func TestDataProfiler_IdentifierInsight(t *testing.T) {
	rows := testhelpers.Column("order_code", "ord-1", "ord-2", "ord-3", "ord-4")

	profile := newTestProfiler().Profile([]string{"order_code"}, rows)

	require.Len(t, profile.Insights, 1)
	assert.Contains(t, profile.Insights[0], "order_code")
	assert.Contains(t, profile.Insights[0], "identifier")
}

func TestDataProfiler_NumericColumnIsNotIdentifier(t *testing.T) {
	rows := testhelpers.Column("revenue", 10, 20, 30, 40)

	profile := newTestProfiler().Profile([]string{"revenue"}, rows)

	assert.Empty(t, profile.Insights)
}

func TestDataProfiler_RowCap(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRows = 10
	rows := make([]map[string]any, 0, 50)
	for i := 0; i < 50; i++ {
		rows = append(rows, map[string]any{"v": i})
	}

	profile := NewDataProfiler(cfg, zap.NewNop()).Profile([]string{"v"}, rows)

	assert.Equal(t, 10, profile.RowCount)
	assert.Equal(t, 10, profile.Columns[0].TotalCount)
}

func TestDataProfiler_Empty(t *testing.T) {
	profile := newTestProfiler().Profile(nil, nil)
	require.NotNil(t, profile)

	assert.Equal(t, 0, profile.RowCount)
	assert.Equal(t, 0, profile.ColumnCount)
	assert.Empty(t, profile.Columns)
	assert.Empty(t, profile.Warnings)
}
