package models

import (
	"strings"

	"github.com/spf13/cast"
)

// ============================================================================
// Worksheet Input Shape
// ============================================================================

// ColumnDescriptor describes one column of a worksheet-shaped query result as
// reported by the upstream data source.
type ColumnDescriptor struct {
	FieldName string `json:"field_name"`
	DataType  string `json:"data_type"`
}

// CellValue is a single cell of a query result row. Raw carries the native
// value returned by the data source; Display carries the source's formatted
// rendering when it differs (e.g. "$1,200" for 1200).
//
// Accessor contract: GroupKey (display-first) for grouping keys, Number
// (raw-first) for arithmetic. Callers must not mix the two.
type CellValue struct {
	Raw     any    `json:"value"`
	Display string `json:"display_value,omitempty"`
}

// GroupKey returns the value to group by: the display value when present,
// otherwise the raw value rendered as a string. Empty means missing.
func (c CellValue) GroupKey() string {
	if s := strings.TrimSpace(c.Display); s != "" {
		return s
	}
	if c.Raw == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(c.Raw))
}

// Number coerces the raw value to a float64 for arithmetic.
// Returns false when the cell holds nothing numeric.
func (c CellValue) Number() (float64, bool) {
	if c.Raw == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(c.Raw)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsMissing reports whether the cell carries no usable value at all.
func (c CellValue) IsMissing() bool {
	return c.Raw == nil && strings.TrimSpace(c.Display) == ""
}

// Row is one ordered row of cells, aligned with the worksheet's columns.
type Row []CellValue

// Worksheet is the cell-based input shape consumed by the worksheet-analysis
// branch. It is distinct from the simpler field-name-keyed rows consumed by
// the profiling branch; the two must not be conflated.
type Worksheet struct {
	Columns []ColumnDescriptor `json:"columns"`
	Rows    []Row              `json:"rows"`
}
