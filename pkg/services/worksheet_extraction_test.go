package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulseboard/insights-engine/pkg/models"
	"github.com/pulseboard/insights-engine/pkg/testhelpers"
)

func newTestExtractor() *WorksheetExtractor {
	return NewWorksheetExtractor(zap.NewNop())
}

func singleColumnWorksheet(field, dataType string, raws ...any) models.Worksheet {
	ws := models.Worksheet{
		Columns: []models.ColumnDescriptor{{FieldName: field, DataType: dataType}},
	}
	for _, raw := range raws {
		ws.Rows = append(ws.Rows, models.Row{testhelpers.Cell(raw)})
	}
	return ws
}

func TestWorksheetExtractor_CampaignFixture(t *testing.T) {
	ws := testhelpers.LoadWorksheet(t, "testdata/campaigns.yaml")

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{})

	assert.Equal(t, 6, analysis.RowCount)
	require.Len(t, analysis.Measures, 2)

	openRate := analysis.Measures[0]
	assert.Equal(t, "SUM(Open Rate)", openRate.Field)
	assert.Equal(t, "Open Rate", openRate.Name)
	assert.True(t, openRate.IsRate)
	assert.Equal(t, models.MeasureTypeRate, openRate.Type)
	// Percentage source normalized onto the 0-1 scale.
	assert.InDelta(t, 0.35, openRate.Avg, 1e-9)
	assert.InDelta(t, 0.10, openRate.Min, 1e-9)
	assert.InDelta(t, 0.60, openRate.Max, 1e-9)
	assert.Equal(t, "35.0%", openRate.FormatValue(openRate.Avg))

	sent := analysis.Measures[1]
	assert.Equal(t, "Sent Count", sent.Name)
	assert.False(t, sent.IsRate)
	assert.True(t, sent.IsCount)
	assert.Equal(t, models.MeasureTypeVolume, sent.Type)
	assert.InDelta(t, 1400, sent.Sum, 1e-9)

	// Campaign (cardinality 3) drives the breakdowns, not Send Date.
	require.Len(t, analysis.Breakdowns, 2)
	rateBd := analysis.Breakdowns[0]
	assert.Equal(t, "Open Rate", rateBd.Measure)
	assert.Equal(t, "Campaign", rateBd.Dimension)
	require.Len(t, rateBd.Items, 3)
	assert.Equal(t, "Fall Digest", rateBd.Items[0].Label)
	assert.InDelta(t, 0.55, rateBd.Items[0].Value, 1e-9)
	assert.InDelta(t, 0.15, rateBd.Items[2].Value, 1e-9)
	assert.Equal(t, 6, rateBd.TotalCount())

	sentBd := analysis.Breakdowns[1]
	assert.Equal(t, "Sent Count", sentBd.Measure)
	assert.InDelta(t, 700, sentBd.Items[0].Value, 1e-9)

	require.NotNil(t, analysis.DateRange)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), analysis.DateRange.Min)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), analysis.DateRange.Max)
}

func TestWorksheetExtractor_PercentageNormalization(t *testing.T) {
	ws := singleColumnWorksheet("SUM(Open Rate)", "float", 10, 20, 30)

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{})

	require.Len(t, analysis.Measures, 1)
	m := analysis.Measures[0]
	assert.True(t, m.IsRate)
	assert.InDelta(t, 0.2, m.Avg, 1e-9)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, m.Values)
	assert.Equal(t, "20.0%", m.FormatValue(m.Avg))
}

func TestWorksheetExtractor_RateScaleFallback(t *testing.T) {
	// No rate token in the name, but every value sits in [0, 1] with a
	// positive mean: classified as a rate without rescaling.
	ws := singleColumnWorksheet("engagement", "float", 0.2, 0.4, 0.6)

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{})

	require.Len(t, analysis.Measures, 1)
	m := analysis.Measures[0]
	assert.True(t, m.IsRate)
	assert.InDelta(t, 0.4, m.Avg, 1e-9)
}

func TestWorksheetExtractor_MalformedCellsCoerceToZero(t *testing.T) {
	ws := singleColumnWorksheet("revenue", "float", 100, "garbage", nil, 50)

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{})

	require.Len(t, analysis.Measures, 1)
	m := analysis.Measures[0]
	assert.Equal(t, 4, m.Count)
	assert.Equal(t, []float64{100, 0, 0, 50}, m.Values)
	assert.InDelta(t, 150, m.Sum, 1e-9)
	assert.InDelta(t, 0, m.Min, 1e-9)
}

func TestWorksheetExtractor_DimensionCardinalityBounds(t *testing.T) {
	t.Run("constant column rejected", func(t *testing.T) {
		ws := singleColumnWorksheet("region", "string", "east", "east", "east")
		analysis := newTestExtractor().Analyze(ws, ExtractOptions{})
		assert.Empty(t, analysis.Dimensions)
	})

	t.Run("high cardinality rejected", func(t *testing.T) {
		raws := make([]any, 0, 120)
		for i := 0; i < 120; i++ {
			raws = append(raws, fmt.Sprintf("key-%d", i))
		}
		ws := singleColumnWorksheet("token", "string", raws...)
		analysis := newTestExtractor().Analyze(ws, ExtractOptions{})
		assert.Empty(t, analysis.Dimensions)
	})

	t.Run("bounded cardinality accepted", func(t *testing.T) {
		ws := singleColumnWorksheet("region", "string", "east", "west", "east")
		analysis := newTestExtractor().Analyze(ws, ExtractOptions{})
		require.Len(t, analysis.Dimensions, 1)
		assert.Equal(t, 2, analysis.Dimensions[0].Cardinality)
		assert.Equal(t, []string{"east", "west"}, analysis.Dimensions[0].Values)
	})
}

func TestWorksheetExtractor_DimensionSelection(t *testing.T) {
	// Three candidate dimensions with cardinalities 2, 5, 40: the first one
	// inside the chart-friendly 3-15 band wins.
	ws := models.Worksheet{
		Columns: []models.ColumnDescriptor{
			{FieldName: "flag", DataType: "string"},
			{FieldName: "segment", DataType: "string"},
			{FieldName: "account", DataType: "string"},
			{FieldName: "SUM(Sales)", DataType: "float"},
		},
	}
	for i := 0; i < 40; i++ {
		ws.Rows = append(ws.Rows, models.Row{
			testhelpers.Cell(fmt.Sprintf("f-%d", i%2)),
			testhelpers.Cell(fmt.Sprintf("s-%d", i%5)),
			testhelpers.Cell(fmt.Sprintf("a-%d", i)),
			testhelpers.Cell(10),
		})
	}

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{})

	require.Len(t, analysis.Dimensions, 3)
	require.Len(t, analysis.Breakdowns, 1)
	assert.Equal(t, "Segment", analysis.Breakdowns[0].Dimension)
}

func TestWorksheetExtractor_FocusDimension(t *testing.T) {
	ws := models.Worksheet{
		Columns: []models.ColumnDescriptor{
			{FieldName: "segment", DataType: "string"},
			{FieldName: "channel", DataType: "string"},
			{FieldName: "SUM(Sales)", DataType: "float"},
		},
	}
	for i := 0; i < 20; i++ {
		ws.Rows = append(ws.Rows, models.Row{
			testhelpers.Cell(fmt.Sprintf("s-%d", i%4)),
			testhelpers.Cell(fmt.Sprintf("c-%d", i%3)),
			testhelpers.Cell(10),
		})
	}

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{FocusDimension: "chan"})

	require.Len(t, analysis.Breakdowns, 1)
	assert.Equal(t, "Channel", analysis.Breakdowns[0].Dimension)
}

func TestWorksheetExtractor_FocusMetricsFallback(t *testing.T) {
	ws := models.Worksheet{
		Columns: []models.ColumnDescriptor{
			{FieldName: "SUM(Sales)", DataType: "float"},
			{FieldName: "SUM(Profit)", DataType: "float"},
		},
		Rows: []models.Row{
			{testhelpers.Cell(100), testhelpers.Cell(20)},
			{testhelpers.Cell(200), testhelpers.Cell(40)},
		},
	}

	t.Run("matching focus filters", func(t *testing.T) {
		analysis := newTestExtractor().Analyze(ws, ExtractOptions{FocusMetrics: []string{"profit"}})
		require.Len(t, analysis.Measures, 1)
		assert.Equal(t, "Profit", analysis.Measures[0].Name)
	})

	t.Run("unmatched focus falls back silently", func(t *testing.T) {
		analysis := newTestExtractor().Analyze(ws, ExtractOptions{FocusMetrics: []string{"bounce"}})
		assert.Len(t, analysis.Measures, 2)
	})
}

func TestWorksheetExtractor_MaxMetricsCap(t *testing.T) {
	cols := make([]models.ColumnDescriptor, 0, 8)
	row := make(models.Row, 0, 8)
	for i := 0; i < 8; i++ {
		cols = append(cols, models.ColumnDescriptor{
			FieldName: fmt.Sprintf("metric_%d", i), DataType: "float",
		})
		row = append(row, testhelpers.Cell(float64(i+2)))
	}
	ws := models.Worksheet{Columns: cols, Rows: []models.Row{row, row}}

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{MaxMetrics: 3})

	assert.Len(t, analysis.Measures, 3)
}

func TestWorksheetExtractor_BreakdownTruncationAndUnknown(t *testing.T) {
	ws := models.Worksheet{
		Columns: []models.ColumnDescriptor{
			{FieldName: "segment", DataType: "string"},
			{FieldName: "SUM(Sales)", DataType: "float"},
		},
	}
	for i := 0; i < 10; i++ {
		ws.Rows = append(ws.Rows, models.Row{
			testhelpers.Cell(fmt.Sprintf("s-%d", i)),
			testhelpers.Cell(100 - i),
		})
	}
	// One row with no grouping value lands under "Unknown".
	ws.Rows = append(ws.Rows, models.Row{testhelpers.Cell(nil), testhelpers.Cell(5)})

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{MaxItems: 4})

	require.Len(t, analysis.Breakdowns, 1)
	bd := analysis.Breakdowns[0]
	assert.Len(t, bd.Items, 4)
	assert.Equal(t, "s-0", bd.Items[0].Label)
	assert.InDelta(t, 100, bd.Items[0].Value, 1e-9)
}

func TestWorksheetExtractor_DisplayValueDrivesGrouping(t *testing.T) {
	ws := models.Worksheet{
		Columns: []models.ColumnDescriptor{
			{FieldName: "segment", DataType: "string"},
			{FieldName: "SUM(Sales)", DataType: "float"},
		},
		Rows: []models.Row{
			{testhelpers.CellD(1, "Enterprise"), testhelpers.Cell(100)},
			{testhelpers.CellD(2, "Consumer"), testhelpers.Cell(60)},
			{testhelpers.CellD(1, "Enterprise"), testhelpers.Cell(40)},
		},
	}

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{})

	require.Len(t, analysis.Breakdowns, 1)
	items := analysis.Breakdowns[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, "Enterprise", items[0].Label)
	assert.InDelta(t, 140, items[0].Value, 1e-9)
}

func TestWorksheetExtractor_EpochDateRange(t *testing.T) {
	ws := singleColumnWorksheet("event_time", "integer",
		int64(1700000000), int64(1710000000), int64(1690000000))

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{})

	require.NotNil(t, analysis.DateRange)
	assert.Equal(t, time.Unix(1690000000, 0).UTC(), analysis.DateRange.Min)
	assert.Equal(t, time.Unix(1710000000, 0).UTC(), analysis.DateRange.Max)
}

func TestWorksheetExtractor_MetaColumnsSkipped(t *testing.T) {
	ws := models.Worksheet{
		Columns: []models.ColumnDescriptor{
			{FieldName: "Measure Names", DataType: "string"},
			{FieldName: "Measure Values", DataType: "float"},
		},
		Rows: []models.Row{
			{testhelpers.Cell("Open Rate"), testhelpers.Cell(0.2)},
			{testhelpers.Cell("Click Rate"), testhelpers.Cell(0.1)},
		},
	}

	analysis := newTestExtractor().Analyze(ws, ExtractOptions{})

	assert.Empty(t, analysis.Measures)
	assert.Empty(t, analysis.Dimensions)
	assert.Empty(t, analysis.Breakdowns)
}

func TestWorksheetExtractor_Empty(t *testing.T) {
	analysis := newTestExtractor().Analyze(models.Worksheet{}, ExtractOptions{})

	require.NotNil(t, analysis)
	assert.Equal(t, 0, analysis.RowCount)
	assert.Empty(t, analysis.Measures)
	assert.Empty(t, analysis.Dimensions)
	assert.Empty(t, analysis.Breakdowns)
	assert.Nil(t, analysis.DateRange)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", analysis.AnalysisID.String())
}
