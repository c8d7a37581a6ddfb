package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/pulseboard/insights-engine/pkg/models"
)

// Detection thresholds. Each rule flags only when the occurrence fraction
// stays below a noise ceiling: a rule that fires on most of a column is
// describing the column, not an anomaly in it.
const (
	outlierMinSample   = 10
	anomalyNoiseFrac   = 0.10
	outlierHighCount   = 5
	nullSpikeMinFrac   = 0.20
	nullSpikeHighFrac  = 0.50
	maxOutlierSamples  = 10
	maxDuplicateGroups = 5
)

// positiveQuantityTokens lexically mark columns that should never go negative.
var positiveQuantityTokens = []string{"sales", "revenue", "quantity", "amount"}

// keyColumnTokens lexically mark string columns expected to hold unique keys.
var keyColumnTokens = []string{"id", "key", "code"}

// AnomalyDetector scans columns for outliers, null spikes, duplicate keys and
// sign anomalies. It runs independently of the profiler: each rule classifies
// and samples the column on its own terms.
type AnomalyDetector struct {
	logger *zap.Logger
}

// NewAnomalyDetector creates a new anomaly detector.
func NewAnomalyDetector(logger *zap.Logger) *AnomalyDetector {
	return &AnomalyDetector{logger: logger.Named("anomaly-detector")}
}

// Detect runs every applicable rule on every column. Rules are independent:
// a column may emit zero, one, or several anomalies. Never fails; empty input
// yields an empty result.
func (d *AnomalyDetector) Detect(columns []string, rows []map[string]any) []models.Anomaly {
	if columns == nil {
		columns = collectColumnNames(rows)
	}

	anomalies := make([]models.Anomaly, 0)
	for _, name := range columns {
		values := make([]any, 0, len(rows))
		for _, row := range rows {
			values = append(values, row[name])
		}
		colType := ClassifyColumnType(values, DefaultSampleSize)

		if colType == models.DataTypeNumeric {
			if a := detectOutliers(name, values); a != nil {
				anomalies = append(anomalies, *a)
			}
			if a := detectNegativeValues(name, values); a != nil {
				anomalies = append(anomalies, *a)
			}
		}
		if a := detectNullSpike(name, values); a != nil {
			anomalies = append(anomalies, *a)
		}
		if colType == models.DataTypeString {
			if a := detectDuplicateKeys(name, values); a != nil {
				anomalies = append(anomalies, *a)
			}
		}
	}

	d.logger.Debug("Anomaly scan complete",
		zap.Int("columns", len(columns)),
		zap.Int("anomalies", len(anomalies)))

	return anomalies
}

// detectOutliers flags values outside the Tukey fences
// [q1 - 1.5*iqr, q3 + 1.5*iqr]. The noise guard skips columns where outliers
// exceed 10% of the sample: a systematically skewed column would otherwise
// flood the result with false positives.
func detectOutliers(column string, values []any) *models.Anomaly {
	type indexed struct {
		value float64
		row   int
	}
	nums := make([]indexed, 0, len(values))
	for i, v := range values {
		if isMissingValue(v) {
			continue
		}
		if f, err := cast.ToFloat64E(v); err == nil {
			nums = append(nums, indexed{value: f, row: i})
		}
	}
	if len(nums) <= outlierMinSample {
		return nil
	}

	sorted := make([]float64, len(nums))
	for i, n := range nums {
		sorted[i] = n.value
	}
	sort.Float64s(sorted)
	q1, q3 := nearestRankQuartiles(sorted)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	outliers := make([]models.AnomalySample, 0)
	for _, n := range nums {
		if n.value < lower || n.value > upper {
			outliers = append(outliers, models.AnomalySample{Value: n.value, RowIndex: n.row})
		}
	}
	count := len(outliers)
	if count == 0 || float64(count) >= anomalyNoiseFrac*float64(len(nums)) {
		return nil
	}

	severity := models.SeverityMedium
	if count > outlierHighCount {
		severity = models.SeverityHigh
	}
	if len(outliers) > maxOutlierSamples {
		outliers = outliers[:maxOutlierSamples]
	}
	return &models.Anomaly{
		Type:     models.AnomalyTypeOutlier,
		Severity: severity,
		Column:   column,
		Description: fmt.Sprintf("%d values fall outside the expected range [%.2f, %.2f]",
			count, lower, upper),
		Samples:    outliers,
		Suggestion: "Check whether the extreme values are data entry errors or genuine outliers",
	}
}

// detectNegativeValues applies only to columns whose name suggests an
// inherently positive quantity.
func detectNegativeValues(column string, values []any) *models.Anomaly {
	if !nameContainsAny(column, positiveQuantityTokens) {
		return nil
	}

	negatives := make([]models.AnomalySample, 0)
	positiveCount := 0
	for i, v := range values {
		if isMissingValue(v) {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			continue
		}
		if f < 0 {
			negatives = append(negatives, models.AnomalySample{Value: f, RowIndex: i})
		} else if f > 0 {
			positiveCount++
		}
	}
	count := len(negatives)
	if count == 0 || float64(count) >= anomalyNoiseFrac*float64(positiveCount) {
		return nil
	}

	if len(negatives) > maxOutlierSamples {
		negatives = negatives[:maxOutlierSamples]
	}
	return &models.Anomaly{
		Type:     models.AnomalyTypeNegativeValues,
		Severity: models.SeverityMedium,
		Column:   column,
		Description: fmt.Sprintf("%d negative values in a column that normally holds positive quantities",
			count),
		Samples:    negatives,
		Suggestion: "Negative entries here usually indicate refunds, reversals or sign errors",
	}
}

// detectNullSpike flags null fractions strictly between 20% and 100%.
// A fully null column is dead, not spiking.
func detectNullSpike(column string, values []any) *models.Anomaly {
	if len(values) == 0 {
		return nil
	}
	nulls := 0
	for _, v := range values {
		if isMissingValue(v) {
			nulls++
		}
	}
	frac := float64(nulls) / float64(len(values))
	if frac <= nullSpikeMinFrac || frac >= 1.0 {
		return nil
	}

	severity := models.SeverityMedium
	if frac > nullSpikeHighFrac {
		severity = models.SeverityHigh
	}
	return &models.Anomaly{
		Type:        models.AnomalyTypeNullSpike,
		Severity:    severity,
		Column:      column,
		Description: fmt.Sprintf("%.1f%% of values are missing", frac*100),
		Suggestion:  "Check whether the upstream query dropped a join or the field went dark recently",
	}
}

// detectDuplicateKeys applies to string columns whose name marks them as
// keys. Reports up to 5 duplicate groups as "value (Nx)".
func detectDuplicateKeys(column string, values []any) *models.Anomaly {
	if !nameContainsAny(column, keyColumnTokens) {
		return nil
	}

	freq := make(map[string]int)
	for _, v := range values {
		if isMissingValue(v) {
			continue
		}
		freq[cast.ToString(v)]++
	}
	if len(freq) == 0 {
		return nil
	}

	type group struct {
		value string
		count int
	}
	dupes := make([]group, 0)
	for v, c := range freq {
		if c > 1 {
			dupes = append(dupes, group{value: v, count: c})
		}
	}
	if len(dupes) == 0 || float64(len(dupes)) >= anomalyNoiseFrac*float64(len(freq)) {
		return nil
	}

	sort.Slice(dupes, func(i, j int) bool {
		if dupes[i].count == dupes[j].count {
			return dupes[i].value < dupes[j].value
		}
		return dupes[i].count > dupes[j].count
	})
	samples := make([]string, 0, maxDuplicateGroups)
	for _, g := range dupes {
		if len(samples) >= maxDuplicateGroups {
			break
		}
		samples = append(samples, fmt.Sprintf("%s (%dx)", g.value, g.count))
	}

	return &models.Anomaly{
		Type:     models.AnomalyTypeDuplicateKeys,
		Severity: models.SeverityMedium,
		Column:   column,
		Description: fmt.Sprintf("%d values appear more than once in a key-like column",
			len(dupes)),
		SampleValues: samples,
		Suggestion:   "Key columns are expected to be unique; deduplicate upstream or confirm the grain",
	}
}

// nameContainsAny reports whether the lowercased column name contains any of
// the given tokens.
func nameContainsAny(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
