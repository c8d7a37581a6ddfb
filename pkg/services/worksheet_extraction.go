package services

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulseboard/insights-engine/pkg/models"
)

// ExtractOptions configures one worksheet extraction.
type ExtractOptions struct {
	// MaxMetrics caps returned measures (default 6).
	MaxMetrics int
	// MaxItems caps breakdown size and dimension value samples (default 7).
	MaxItems int
	// LabelOverrides maps exact raw field names to labels.
	LabelOverrides map[string]string
	// FocusMetrics is a substring allow-list for measures.
	FocusMetrics []string
	// FocusDimension is a substring preference for dimension selection.
	FocusDimension string
	// EntityHint names the entity counted by context-free count aggregates,
	// e.g. "Email" yields "Total Emails" instead of "Record Count".
	EntityHint string
}

func (o ExtractOptions) withDefaults() ExtractOptions {
	if o.MaxMetrics <= 0 {
		o.MaxMetrics = 6
	}
	if o.MaxItems <= 0 {
		o.MaxItems = 7
	}
	return o
}

// aggregationNamePattern matches aggregation-wrapped field names like
// "SUM(Sales)" or "CNTD(Customer ID)".
var aggregationNamePattern = regexp.MustCompile(`(?i)^(sum|avg|count|cntd|min|max|agg|attr|median)\s*\(`)

// rateNameTokens lexically mark measures whose natural unit is a ratio.
var rateNameTokens = []string{"rate", "percent", "ratio", "pct", "margin", "share"}

// countNameTokens lexically mark additive count-like measures. The flag only
// affects labeling, never value transformation.
var countNameTokens = []string{
	"count", "total", "sum", "volume", "quantity", "num", "number",
	"sales", "revenue", "profit", "amount",
}

// temporalNameTokens lexically mark date-bearing columns.
var temporalNameTokens = []string{"date", "time", "day", "month", "year", "week", "quarter"}

// numericTypeNames are declared data types that qualify a column as a measure.
var numericTypeNames = map[string]bool{
	"integer": true, "int": true, "bigint": true, "float": true,
	"double": true, "real": true, "decimal": true, "number": true,
	"numeric": true,
}

// temporalTypeNames are declared data types that qualify a column as the
// date-range source.
var temporalTypeNames = map[string]bool{
	"date": true, "datetime": true, "timestamp": true, "time": true,
}

// Epoch-like numbers outside this window are treated as plain numbers.
var (
	epochMin = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	epochMax = time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC)
)

// WorksheetExtractor turns a worksheet-shaped query result into classified
// measures, dimensions and measure-by-dimension breakdowns.
type WorksheetExtractor struct {
	logger *zap.Logger
}

// NewWorksheetExtractor creates a new worksheet extractor.
func NewWorksheetExtractor(logger *zap.Logger) *WorksheetExtractor {
	return &WorksheetExtractor{logger: logger.Named("worksheet-extractor")}
}

// Analyze extracts the measure/dimension/breakdown model from one worksheet.
// Never fails: malformed cells coerce to neutral defaults and empty input
// yields a well-formed empty analysis.
func (e *WorksheetExtractor) Analyze(ws models.Worksheet, opts ExtractOptions) *models.WorksheetAnalysis {
	opts = opts.withDefaults()

	analysis := &models.WorksheetAnalysis{
		AnalysisID: uuid.New(),
		Measures:   make([]models.MeasureInfo, 0),
		Dimensions: make([]models.DimensionInfo, 0),
		Breakdowns: make([]models.BreakdownData, 0),
		RowCount:   len(ws.Rows),
	}

	analysis.DateRange = extractDateRange(ws)

	for idx, col := range ws.Columns {
		if isMetaColumn(col.FieldName) {
			continue
		}
		if isMeasureColumn(col) {
			analysis.Measures = append(analysis.Measures, e.extractMeasure(ws, idx, col, opts))
		} else if dim := extractDimension(ws, idx, col, opts); dim != nil {
			analysis.Dimensions = append(analysis.Dimensions, *dim)
		}
	}

	analysis.Measures = selectMeasures(analysis.Measures, opts)
	if dim := selectDimension(analysis.Dimensions, opts.FocusDimension); dim != nil {
		for _, m := range analysis.Measures {
			analysis.Breakdowns = append(analysis.Breakdowns,
				buildBreakdown(ws, m, *dim, opts.MaxItems))
		}
	}

	e.logger.Debug("Worksheet analyzed",
		zap.Int("rows", analysis.RowCount),
		zap.Int("measures", len(analysis.Measures)),
		zap.Int("dimensions", len(analysis.Dimensions)),
		zap.Int("breakdowns", len(analysis.Breakdowns)))

	return analysis
}

// isMetaColumn skips the synthetic placeholder fields some BI sources inject
// when measures are pivoted into rows.
func isMetaColumn(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "measure names") || strings.Contains(lower, "measure values")
}

// isMeasureColumn qualifies a column as a measure: declared numeric, or named
// with aggregation-function syntax.
func isMeasureColumn(col models.ColumnDescriptor) bool {
	if numericTypeNames[strings.ToLower(col.DataType)] {
		return true
	}
	return aggregationNamePattern.MatchString(col.FieldName)
}

// extractMeasure folds one column's cells into a MeasureInfo. Malformed
// cells coerce to 0 so the value sequence stays row-aligned.
func (e *WorksheetExtractor) extractMeasure(ws models.Worksheet, idx int, col models.ColumnDescriptor, opts ExtractOptions) models.MeasureInfo {
	values := make([]float64, 0, len(ws.Rows))
	sum := 0.0
	minV, maxV := 0.0, 0.0
	for rowIdx, row := range ws.Rows {
		v := 0.0
		if idx < len(row) {
			if f, ok := row[idx].Number(); ok {
				v = f
			}
		}
		if rowIdx == 0 {
			minV, maxV = v, v
		} else {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		sum += v
		values = append(values, v)
	}
	count := len(values)
	avg := 0.0
	if count > 0 {
		avg = sum / float64(count)
	}

	isRateName := nameContainsAny(col.FieldName, rateNameTokens)
	// Statistical fallback: a range entirely inside [0,1] with a positive
	// mean reads as a ratio. This can misclassify small-magnitude counts;
	// accepted heuristic limit, nothing upstream can disambiguate.
	isRate := isRateName || (count > 0 && minV >= 0 && maxV <= 1 && avg > 0)

	// Percentage sources (0-100) normalize onto the 0-1 scale so every rate
	// measure downstream lives on one consistent scale.
	if isRateName && maxV > 1 {
		sum /= 100
		avg /= 100
		minV /= 100
		maxV /= 100
		for i := range values {
			values[i] /= 100
		}
	}

	isCount := nameContainsAny(col.FieldName, countNameTokens)

	measureType := models.MeasureTypeValue
	if isRate {
		measureType = models.MeasureTypeRate
	} else if isCount {
		measureType = models.MeasureTypeVolume
	}

	return models.MeasureInfo{
		Field: col.FieldName,
		Name: NormalizeFieldName(col.FieldName, NormalizeContext{
			Overrides:  opts.LabelOverrides,
			IsRate:     isRate,
			EntityHint: opts.EntityHint,
		}),
		Index:   idx,
		Sum:     sum,
		Avg:     avg,
		Min:     minV,
		Max:     maxV,
		Count:   count,
		Values:  values,
		IsRate:  isRate,
		IsCount: isCount,
		Type:    measureType,
	}
}

// extractDimension qualifies one non-measure column as a dimension when its
// cardinality lands in (1, 100].
func extractDimension(ws models.Worksheet, idx int, col models.ColumnDescriptor, opts ExtractOptions) *models.DimensionInfo {
	distinct := make(map[string]struct{})
	sample := make([]string, 0, opts.MaxItems)
	for _, row := range ws.Rows {
		if idx >= len(row) {
			continue
		}
		key := row[idx].GroupKey()
		if key == "" {
			continue
		}
		if _, seen := distinct[key]; !seen {
			distinct[key] = struct{}{}
			if len(sample) < opts.MaxItems {
				sample = append(sample, key)
			}
		}
	}
	cardinality := len(distinct)
	if cardinality <= 1 || cardinality > 100 {
		return nil
	}
	return &models.DimensionInfo{
		Field: col.FieldName,
		Name: NormalizeFieldName(col.FieldName, NormalizeContext{
			Overrides:  opts.LabelOverrides,
			EntityHint: opts.EntityHint,
		}),
		Index:       idx,
		Cardinality: cardinality,
		Values:      sample,
	}
}

// selectMeasures applies the focus allow-list, falling back silently to the
// unfiltered list when nothing matches, then truncates. An unmatched filter
// must never empty the result.
func selectMeasures(measures []models.MeasureInfo, opts ExtractOptions) []models.MeasureInfo {
	selected := measures
	if len(opts.FocusMetrics) > 0 {
		matched := make([]models.MeasureInfo, 0, len(measures))
		for _, m := range measures {
			for _, hint := range opts.FocusMetrics {
				h := strings.ToLower(hint)
				if strings.Contains(strings.ToLower(m.Field), h) ||
					strings.Contains(strings.ToLower(m.Name), h) {
					matched = append(matched, m)
					break
				}
			}
		}
		if len(matched) > 0 {
			selected = matched
		}
	}
	if len(selected) > opts.MaxMetrics {
		selected = selected[:opts.MaxMetrics]
	}
	return selected
}

// selectDimension picks exactly one dimension to drive breakdowns: the focus
// hint first, then the first with a chart-friendly cardinality of 3-15, then
// the first dimension at all.
func selectDimension(dims []models.DimensionInfo, focus string) *models.DimensionInfo {
	if len(dims) == 0 {
		return nil
	}
	if focus != "" {
		f := strings.ToLower(focus)
		for _, d := range dims {
			if strings.Contains(strings.ToLower(d.Field), f) ||
				strings.Contains(strings.ToLower(d.Name), f) {
				return &d
			}
		}
	}
	for _, d := range dims {
		if d.Cardinality >= 3 && d.Cardinality <= 15 {
			return &d
		}
	}
	return &dims[0]
}

// buildBreakdown groups rows by the dimension's display value and aggregates
// the measure per group: mean for rates (summing percentages is semantically
// invalid), sum for everything else.
func buildBreakdown(ws models.Worksheet, m models.MeasureInfo, dim models.DimensionInfo, maxItems int) models.BreakdownData {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	order := make([]string, 0)
	for rowIdx, row := range ws.Rows {
		label := "Unknown"
		if dim.Index < len(row) {
			if key := row[dim.Index].GroupKey(); key != "" {
				label = key
			}
		}
		v := 0.0
		if rowIdx < len(m.Values) {
			v = m.Values[rowIdx]
		}
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		sums[label] += v
		counts[label]++
	}

	items := make([]models.BreakdownItem, 0, len(order))
	for _, label := range order {
		value := sums[label]
		if m.IsRate && counts[label] > 0 {
			value = sums[label] / float64(counts[label])
		}
		items = append(items, models.BreakdownItem{
			Label: label,
			Value: value,
			Count: counts[label],
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Value == items[j].Value {
			return items[i].Label < items[j].Label
		}
		return items[i].Value > items[j].Value
	})
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return models.BreakdownData{
		Measure:   m.Name,
		Dimension: dim.Name,
		Items:     items,
	}
}

// extractDateRange scans the sole date column (first temporal-typed or
// temporal-named column; first match wins, not best match) and tracks min/max.
// Unparseable cells are skipped, never defaulted.
func extractDateRange(ws models.Worksheet) *models.DateRange {
	dateIdx := -1
	for idx, col := range ws.Columns {
		if isMetaColumn(col.FieldName) {
			continue
		}
		if temporalTypeNames[strings.ToLower(col.DataType)] || nameContainsAny(col.FieldName, temporalNameTokens) {
			dateIdx = idx
			break
		}
	}
	if dateIdx < 0 {
		return nil
	}

	var r *models.DateRange
	for _, row := range ws.Rows {
		if dateIdx >= len(row) {
			continue
		}
		t, ok := parseCellDate(row[dateIdx])
		if !ok {
			continue
		}
		if r == nil {
			r = &models.DateRange{Min: t, Max: t}
			continue
		}
		if t.Before(r.Min) {
			r.Min = t
		}
		if t.After(r.Max) {
			r.Max = t
		}
	}
	return r
}

// parseCellDate extracts a timestamp from a cell: native dates first, then
// string forms, then epoch-like numbers bounded to the years 1970-2100.
func parseCellDate(c models.CellValue) (time.Time, bool) {
	switch v := c.Raw.(type) {
	case time.Time:
		return v, true
	case string:
		if t, ok := parseDateString(v); ok {
			return t, true
		}
	}
	if f, ok := c.Number(); ok {
		return parseEpoch(f)
	}
	if c.Display != "" {
		return parseDateString(c.Display)
	}
	return time.Time{}, false
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if y := t.Year(); y >= minSaneYear && y <= maxSaneYear {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// parseEpoch interprets a number as unix seconds or milliseconds, whichever
// lands inside the sane window.
func parseEpoch(f float64) (time.Time, bool) {
	for _, t := range []time.Time{
		time.Unix(int64(f), 0).UTC(),
		time.UnixMilli(int64(f)).UTC(),
	} {
		if !t.Before(epochMin) && !t.After(epochMax) {
			return t, true
		}
	}
	return time.Time{}, false
}
