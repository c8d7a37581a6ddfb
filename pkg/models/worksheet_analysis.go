package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Measures
// ============================================================================

// MeasureType tags the natural unit of a measure.
type MeasureType string

const (
	// MeasureTypeRate is a 0-1 ratio (or equivalent percentage source).
	MeasureTypeRate MeasureType = "rate"
	// MeasureTypeVolume is an additive count-like quantity.
	MeasureTypeVolume MeasureType = "volume"
	// MeasureTypeValue is any other numeric quantity.
	MeasureTypeValue MeasureType = "value"
)

// MeasureInfo is one numeric field detected in a worksheet.
//
// Rate measures always hold Sum/Avg/Min/Max/Values on a single 0-1 scale;
// percentage-scaled sources (0-100) are normalized at extraction time and
// never leak through. Downstream code relies on that.
type MeasureInfo struct {
	// Field is the raw field name as reported by the source,
	// e.g. "SUM(Open Rate)". Merge keys on Name, not Field.
	Field string `json:"field"`

	// Name is the human-readable label produced by the field-name normalizer.
	Name string `json:"name"`

	Index int `json:"index"`

	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`

	// Values retains the full per-row value sequence, in row order.
	Values []float64 `json:"values,omitempty"`

	IsRate  bool        `json:"is_rate"`
	IsCount bool        `json:"is_count"`
	Type    MeasureType `json:"type"`
}

// FormatValue renders v in the measure's natural unit: "20.0%" for rates
// (v on the 0-1 scale), plain decimal otherwise.
func (m *MeasureInfo) FormatValue(v float64) string {
	if m.IsRate {
		return fmt.Sprintf("%.1f%%", v*100)
	}
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// ============================================================================
// Dimensions and Breakdowns
// ============================================================================

// DimensionInfo is one bounded-cardinality categorical field.
// Only fields with 1 < cardinality <= 100 qualify.
type DimensionInfo struct {
	Field       string   `json:"field"`
	Name        string   `json:"name"`
	Index       int      `json:"index"`
	Cardinality int      `json:"cardinality"`
	Values      []string `json:"values,omitempty"` // bounded sample of distinct values
}

// BreakdownItem is one (category, aggregated value) pair.
type BreakdownItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// BreakdownData is one measure crossed with one dimension, sorted by value
// descending and truncated to the configured item limit.
type BreakdownData struct {
	Measure   string          `json:"measure"`
	Dimension string          `json:"dimension"`
	Items     []BreakdownItem `json:"items"`
}

// TotalCount returns the number of source rows behind the breakdown.
func (b *BreakdownData) TotalCount() int {
	total := 0
	for _, it := range b.Items {
		total += it.Count
	}
	return total
}

// ============================================================================
// Analysis Result
// ============================================================================

// DateRange is the observed min/max of the worksheet's date column.
type DateRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// WorksheetAnalysis is the output of the worksheet-analysis branch, consumed
// by chart and narrative generation downstream.
type WorksheetAnalysis struct {
	AnalysisID uuid.UUID       `json:"analysis_id"`
	Measures   []MeasureInfo   `json:"measures"`
	Dimensions []DimensionInfo `json:"dimensions"`
	Breakdowns []BreakdownData `json:"breakdowns"`
	RowCount   int             `json:"row_count"`
	DateRange  *DateRange      `json:"date_range,omitempty"`
}
