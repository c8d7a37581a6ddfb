package services

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/pulseboard/insights-engine/pkg/config"
	"github.com/pulseboard/insights-engine/pkg/models"
)

// smallDatasetThreshold is the row count below which statistics get a
// reliability warning.
const smallDatasetThreshold = 100

// DataProfiler orchestrates type classification and per-column statistics
// across all columns of a table. Profiling consumes the simple field-keyed
// row shape, not worksheet cells.
type DataProfiler struct {
	cfg    config.AnalysisConfig
	logger *zap.Logger
}

// NewDataProfiler creates a new data profiler.
func NewDataProfiler(cfg config.AnalysisConfig, logger *zap.Logger) *DataProfiler {
	return &DataProfiler{
		cfg:    cfg,
		logger: logger.Named("data-profiler"),
	}
}

// Profile computes the whole-table profile. The columns argument fixes the
// column order of the output; pass nil to derive a sorted order from the row
// keys (Go maps carry no order of their own). Output is read-only; the
// function never fails and returns a well-formed empty profile for no rows.
func (p *DataProfiler) Profile(columns []string, rows []map[string]any) *models.DataProfile {
	if columns == nil {
		columns = collectColumnNames(rows)
	}
	if len(rows) > p.cfg.MaxRows {
		rows = rows[:p.cfg.MaxRows]
	}

	profile := &models.DataProfile{
		RowCount:    len(rows),
		ColumnCount: len(columns),
		Columns:     make([]models.ColumnStats, 0, len(columns)),
	}

	for _, name := range columns {
		stats := p.profileColumn(name, rows)
		profile.Columns = append(profile.Columns, stats)

		if stats.NullFraction() > 0.1 {
			profile.Warnings = append(profile.Warnings, fmt.Sprintf(
				"Column '%s' has %.1f%% null values", name, stats.NullFraction()*100))
		}
		if stats.UniqueCount == 1 {
			profile.Warnings = append(profile.Warnings, fmt.Sprintf(
				"Column '%s' is constant: every row holds the same value", name))
		}
		if stats.TotalCount > 0 && stats.UniqueCount == stats.TotalCount && stats.DataType != models.DataTypeNumeric {
			profile.Insights = append(profile.Insights, fmt.Sprintf(
				"Column '%s' is a potential identifier: all values are unique", name))
		}
	}

	if len(rows) > 0 && len(rows) < smallDatasetThreshold {
		profile.Warnings = append(profile.Warnings, fmt.Sprintf(
			"Small dataset: %d rows may produce unreliable statistics", len(rows)))
	}

	p.logger.Debug("Profiled table",
		zap.Int("rows", profile.RowCount),
		zap.Int("columns", profile.ColumnCount),
		zap.Int("warnings", len(profile.Warnings)))

	return profile
}

// profileColumn classifies one column and attaches the matching statistics
// branch: numeric stats for numeric columns, categorical for everything else.
func (p *DataProfiler) profileColumn(name string, rows []map[string]any) models.ColumnStats {
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, row[name])
	}

	stats := models.ColumnStats{
		Name:       name,
		DataType:   ClassifyColumnType(values, p.cfg.SampleSize),
		TotalCount: len(values),
	}

	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		if isMissingValue(v) {
			stats.NullCount++
			continue
		}
		distinct[cast.ToString(v)] = struct{}{}
	}
	stats.UniqueCount = len(distinct)

	if stats.DataType == models.DataTypeNumeric {
		nums := make([]float64, 0, len(values))
		for _, v := range values {
			if isMissingValue(v) {
				continue
			}
			if f, err := cast.ToFloat64E(v); err == nil {
				nums = append(nums, f)
			}
		}
		stats.Numeric = CalculateNumericStats(nums)
	} else {
		strs := make([]string, 0, len(values))
		for _, v := range values {
			if isMissingValue(v) {
				continue
			}
			strs = append(strs, cast.ToString(v))
		}
		stats.Categorical = CalculateCategoricalStats(strs, p.cfg.TopValueLimit)
	}

	return stats
}

// collectColumnNames derives a deterministic column order from row keys.
func collectColumnNames(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, row := range rows {
		for name := range row {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
