package models

// ============================================================================
// Column Classification
// ============================================================================

// DataType is the semantic type inferred for a column from sampled values.
type DataType string

const (
	DataTypeNumeric DataType = "numeric"
	DataTypeBoolean DataType = "boolean"
	DataTypeDate    DataType = "date"
	DataTypeString  DataType = "string"
	DataTypeMixed   DataType = "mixed"
)

// Distribution tags the shape of a numeric column's value distribution.
type Distribution string

const (
	DistributionNormal      Distribution = "normal"
	DistributionSkewedLeft  Distribution = "skewed_left"
	DistributionSkewedRight Distribution = "skewed_right"
	DistributionUnknown     Distribution = "unknown"
)

// ============================================================================
// Column Statistics
// ============================================================================

// NumericStats holds the numeric statistics branch for one column.
// All values are rounded to 2 decimals. Variance and standard deviation are
// population figures (divide by n, not n-1).
type NumericStats struct {
	Min          float64      `json:"min"`
	Max          float64      `json:"max"`
	Sum          float64      `json:"sum"`
	Mean         float64      `json:"mean"`
	Median       float64      `json:"median"`
	StdDev       float64      `json:"std_dev"`
	Q1           float64      `json:"q1"`
	Q3           float64      `json:"q3"`
	IQR          float64      `json:"iqr"`
	Skewness     float64      `json:"skewness"`
	Distribution Distribution `json:"distribution"`
}

// ValueCount is one entry of a categorical frequency table.
type ValueCount struct {
	Value   string  `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"` // of non-missing values, 1 decimal
}

// CategoricalStats holds the categorical statistics branch for one column.
type CategoricalStats struct {
	MinLength int          `json:"min_length"`
	MaxLength int          `json:"max_length"`
	TopValues []ValueCount `json:"top_values,omitempty"`
}

// ColumnStats is the full profile of one column.
// Invariants: UniqueCount <= TotalCount; NullCount + non-null = TotalCount.
// Exactly one of Numeric/Categorical is set, matching DataType.
type ColumnStats struct {
	Name        string            `json:"name"`
	DataType    DataType          `json:"data_type"`
	TotalCount  int               `json:"total_count"`
	NullCount   int               `json:"null_count"`
	UniqueCount int               `json:"unique_count"`
	Numeric     *NumericStats     `json:"numeric,omitempty"`
	Categorical *CategoricalStats `json:"categorical,omitempty"`
}

// NullFraction returns the share of missing values (0.0 - 1.0).
func (c *ColumnStats) NullFraction() float64 {
	if c.TotalCount == 0 {
		return 0
	}
	return float64(c.NullCount) / float64(c.TotalCount)
}

// ============================================================================
// Data Profile
// ============================================================================

// DataProfile is the whole-table profile: one ColumnStats per input column,
// in input order, plus dataset-level warnings and profile insights.
type DataProfile struct {
	RowCount    int           `json:"row_count"`
	ColumnCount int           `json:"column_count"`
	Columns     []ColumnStats `json:"columns"`
	Warnings    []string      `json:"warnings,omitempty"`
	Insights    []string      `json:"insights,omitempty"`
}
