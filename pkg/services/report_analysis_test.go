package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulseboard/insights-engine/pkg/apperrors"
	"github.com/pulseboard/insights-engine/pkg/config"
	"github.com/pulseboard/insights-engine/pkg/models"
	"github.com/pulseboard/insights-engine/pkg/testhelpers"
)

func salesWorksheet(values ...any) models.Worksheet {
	ws := models.Worksheet{
		Columns: []models.ColumnDescriptor{{FieldName: "SUM(Sales)", DataType: "float"}},
	}
	for _, v := range values {
		ws.Rows = append(ws.Rows, models.Row{testhelpers.Cell(v)})
	}
	return ws
}

func TestReportAnalyzer_NilConfig(t *testing.T) {
	r := NewReportAnalyzer(nil, zap.NewNop())

	analysis, err := r.Analyze([]Source{{Name: "a"}}, ExtractOptions{})

	assert.Nil(t, analysis)
	assert.ErrorIs(t, err, apperrors.ErrNilConfig)
}

func TestReportAnalyzer_CombinesSources(t *testing.T) {
	cfg := config.Default()
	r := NewReportAnalyzer(&cfg, zap.NewNop())

	sources := []Source{
		{Name: "q1", Worksheet: salesWorksheet(100, 200)},
		{Name: "q2", Worksheet: salesWorksheet(300)},
	}

	analysis, err := r.Analyze(sources, ExtractOptions{})

	require.NoError(t, err)
	assert.Equal(t, 3, analysis.RowCount)
	require.Len(t, analysis.Measures, 1)
	assert.Equal(t, "Sales", analysis.Measures[0].Name)
	assert.InDelta(t, 600, analysis.Measures[0].Sum, 1e-9)
	assert.Equal(t, 3, analysis.Measures[0].Count)
	assert.InDelta(t, 200, analysis.Measures[0].Avg, 1e-9)
}

func TestReportAnalyzer_FailedSourceDegrades(t *testing.T) {
	cfg := config.Default()
	r := NewReportAnalyzer(&cfg, zap.NewNop())

	sources := []Source{
		{Name: "good", Worksheet: salesWorksheet(100)},
		{Name: "bad", FetchErr: errors.New("upstream timeout")},
	}

	analysis, err := r.Analyze(sources, ExtractOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, analysis.RowCount)
	require.Len(t, analysis.Measures, 1)
	assert.InDelta(t, 100, analysis.Measures[0].Sum, 1e-9)
}

func TestReportAnalyzer_RowCap(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRows = 2
	r := NewReportAnalyzer(&cfg, zap.NewNop())

	analysis, err := r.Analyze([]Source{
		{Name: "wide", Worksheet: salesWorksheet(10, 20, 30, 40)},
	}, ExtractOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, analysis.RowCount)
	assert.InDelta(t, 30, analysis.Measures[0].Sum, 1e-9)
}

func TestReportAnalyzer_NoSources(t *testing.T) {
	cfg := config.Default()
	r := NewReportAnalyzer(&cfg, zap.NewNop())

	analysis, err := r.Analyze(nil, ExtractOptions{})

	assert.Nil(t, analysis)
	assert.ErrorIs(t, err, apperrors.ErrNoSources)
}

func TestReportAnalyzer_AllSourcesFailedDegrades(t *testing.T) {
	cfg := config.Default()
	r := NewReportAnalyzer(&cfg, zap.NewNop())

	analysis, err := r.Analyze([]Source{
		{Name: "a", FetchErr: errors.New("timeout")},
		{Name: "b", FetchErr: errors.New("forbidden")},
	}, ExtractOptions{})

	require.NoError(t, err)
	assert.Equal(t, 0, analysis.RowCount)
	assert.Empty(t, analysis.Measures)
	assert.Empty(t, analysis.Breakdowns)
	assert.Nil(t, analysis.DateRange)
}
