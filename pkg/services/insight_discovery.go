package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/pulseboard/insights-engine/pkg/models"
)

// Search bounds. Crossing every categorical with every numeric column is
// quadratic on wide tables, so each generator works on a small prefix.
const (
	concentrationMinDistinct = 10
	concentrationShareFrac   = 0.80
	dominantShareFrac        = 0.50
	dominantHighFrac         = 0.80
	segmentMaxCategorical    = 3
	segmentMaxNumeric        = 3
	segmentMinSamples        = 5
	segmentRatioThreshold    = 2.0
	segmentRatioHigh         = 5.0
	gapMaxDistinct           = 12
	correlationMaxColumns    = 4
	correlationMinPairs      = 20
	correlationThreshold     = 0.70
	correlationHigh          = 0.90
)

// cycleTokens lexically mark columns that should cover a temporal cycle.
var cycleTokens = []string{"month", "day", "year"}

// InsightDiscoverer searches cross-column relationships and ranks the
// findings for narrative generation.
type InsightDiscoverer struct {
	logger *zap.Logger
}

// NewInsightDiscoverer creates a new insight discoverer.
func NewInsightDiscoverer(logger *zap.Logger) *InsightDiscoverer {
	return &InsightDiscoverer{logger: logger.Named("insight-discoverer")}
}

// Discover runs every generator and returns findings ranked by priority.
// Pure, empty-safe, never fails.
func (d *InsightDiscoverer) Discover(columns []string, rows []map[string]any) []models.Insight {
	if columns == nil {
		columns = collectColumnNames(rows)
	}

	var categorical, numeric []string
	for _, name := range columns {
		values := make([]any, 0, len(rows))
		for _, row := range rows {
			values = append(values, row[name])
		}
		switch ClassifyColumnType(values, DefaultSampleSize) {
		case models.DataTypeNumeric:
			numeric = append(numeric, name)
		case models.DataTypeString, models.DataTypeMixed:
			categorical = append(categorical, name)
		}
	}

	insights := make([]models.Insight, 0)
	for _, col := range categorical {
		insights = append(insights, discoverConcentration(col, rows)...)
		if ins := discoverGap(col, rows); ins != nil {
			insights = append(insights, *ins)
		}
	}
	insights = append(insights, discoverSegmentVariance(categorical, numeric, rows)...)
	insights = append(insights, discoverCorrelations(numeric, rows)...)

	// Rank: high priority first; generator order breaks ties.
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Priority.MoreUrgentThan(insights[j].Priority)
	})

	d.logger.Debug("Insight discovery complete",
		zap.Int("categorical_columns", len(categorical)),
		zap.Int("numeric_columns", len(numeric)),
		zap.Int("insights", len(insights)))

	return insights
}

// discoverConcentration emits a Pareto-concentration insight when the top 20%
// of values hold more than 80% of the rows, and a dominant-value insight when
// any single value holds more than half. Both may co-fire for one column.
func discoverConcentration(column string, rows []map[string]any) []models.Insight {
	freq, total := valueFrequencies(column, rows)
	if total == 0 {
		return nil
	}

	counts := make([]models.ValueCount, 0, len(freq))
	for v, c := range freq {
		counts = append(counts, models.ValueCount{Value: v, Count: c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count == counts[j].Count {
			return counts[i].Value < counts[j].Value
		}
		return counts[i].Count > counts[j].Count
	})

	insights := make([]models.Insight, 0, 2)

	if len(counts) >= concentrationMinDistinct {
		topN := len(counts) / 5
		topSum := 0
		for _, vc := range counts[:topN] {
			topSum += vc.Count
		}
		share := float64(topSum) / float64(total)
		if share > concentrationShareFrac {
			evidence := make([]string, 0, 3)
			for i := 0; i < 3 && i < len(counts); i++ {
				evidence = append(evidence, fmt.Sprintf("%s: %d rows", counts[i].Value, counts[i].Count))
			}
			insights = append(insights, models.Insight{
				Type:  models.InsightTypeConcentration,
				Title: fmt.Sprintf("High concentration in %s", column),
				Description: fmt.Sprintf("The top %d of %d values account for %.1f%% of all rows",
					topN, len(counts), share*100),
				Evidence:   evidence,
				Actionable: true,
				Priority:   models.PriorityHigh,
			})
		}
	}

	if top := counts[0]; float64(top.Count)/float64(total) > dominantShareFrac {
		share := float64(top.Count) / float64(total)
		priority := models.PriorityMedium
		if share > dominantHighFrac {
			priority = models.PriorityHigh
		}
		insights = append(insights, models.Insight{
			Type:  models.InsightTypeDominantValue,
			Title: fmt.Sprintf("Dominant value in %s", column),
			Description: fmt.Sprintf("'%s' alone accounts for %.1f%% of all rows",
				top.Value, share*100),
			Evidence:   []string{fmt.Sprintf("%s: %d of %d rows", top.Value, top.Count, total)},
			Actionable: true,
			Priority:   priority,
		})
	}

	return insights
}

// discoverSegmentVariance crosses the first few categorical columns with the
// first few numeric ones and reports segments whose means diverge by more
// than 2x. Categories need at least 5 samples to qualify.
func discoverSegmentVariance(categorical, numeric []string, rows []map[string]any) []models.Insight {
	if len(categorical) > segmentMaxCategorical {
		categorical = categorical[:segmentMaxCategorical]
	}
	if len(numeric) > segmentMaxNumeric {
		numeric = numeric[:segmentMaxNumeric]
	}

	insights := make([]models.Insight, 0)
	for _, catCol := range categorical {
		for _, numCol := range numeric {
			sums := make(map[string]float64)
			counts := make(map[string]int)
			for _, row := range rows {
				if isMissingValue(row[catCol]) {
					continue
				}
				f, err := cast.ToFloat64E(row[numCol])
				if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
					continue
				}
				key := cast.ToString(row[catCol])
				sums[key] += f
				counts[key]++
			}

			type segment struct {
				name string
				mean float64
				n    int
			}
			qualifying := make([]segment, 0, len(counts))
			for key, n := range counts {
				if n >= segmentMinSamples {
					qualifying = append(qualifying, segment{name: key, mean: sums[key] / float64(n), n: n})
				}
			}
			if len(qualifying) < 2 {
				continue
			}
			sort.Slice(qualifying, func(i, j int) bool {
				if qualifying[i].mean == qualifying[j].mean {
					return qualifying[i].name < qualifying[j].name
				}
				return qualifying[i].mean > qualifying[j].mean
			})
			top, bottom := qualifying[0], qualifying[len(qualifying)-1]
			if bottom.mean == 0 {
				continue
			}
			ratio := top.mean / bottom.mean
			if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= segmentRatioThreshold {
				continue
			}

			priority := models.PriorityMedium
			if ratio > segmentRatioHigh {
				priority = models.PriorityHigh
			}
			insights = append(insights, models.Insight{
				Type:  models.InsightTypeSegmentVariance,
				Title: fmt.Sprintf("%s varies strongly across %s", numCol, catCol),
				Description: fmt.Sprintf("Average %s is %.1fx higher for '%s' (n=%d) than for '%s' (n=%d)",
					numCol, ratio, top.name, top.n, bottom.name, bottom.n),
				Evidence: []string{
					fmt.Sprintf("%s: mean %.2f over %d rows", top.name, top.mean, top.n),
					fmt.Sprintf("%s: mean %.2f over %d rows", bottom.name, bottom.mean, bottom.n),
				},
				Actionable: true,
				Priority:   priority,
			})
		}
	}
	return insights
}

// discoverGap flags temporal-cycle columns with suspiciously few distinct
// values. This checks unique-value count only, not actual calendar coverage;
// it is a lexical heuristic, kept deliberately weak.
func discoverGap(column string, rows []map[string]any) *models.Insight {
	if !nameContainsAny(column, cycleTokens) {
		return nil
	}
	freq, total := valueFrequencies(column, rows)
	if total == 0 || len(freq) >= gapMaxDistinct {
		return nil
	}

	present := make([]string, 0, len(freq))
	for v := range freq {
		present = append(present, v)
	}
	sort.Strings(present)
	if len(present) > 5 {
		present = present[:5]
	}

	return &models.Insight{
		Type:  models.InsightTypeGap,
		Title: fmt.Sprintf("Potential gap in %s", column),
		Description: fmt.Sprintf("Only %d distinct values present in a column that suggests a temporal cycle",
			len(freq)),
		Evidence:   present,
		Actionable: false,
		Priority:   models.PriorityLow,
	}
}

// discoverCorrelations computes Pearson correlation over pairs drawn from the
// first few numeric columns, requiring at least 20 co-occurring values.
func discoverCorrelations(numeric []string, rows []map[string]any) []models.Insight {
	if len(numeric) > correlationMaxColumns {
		numeric = numeric[:correlationMaxColumns]
	}

	insights := make([]models.Insight, 0)
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			xs := make([]float64, 0, len(rows))
			ys := make([]float64, 0, len(rows))
			for _, row := range rows {
				x, errX := cast.ToFloat64E(row[numeric[i]])
				y, errY := cast.ToFloat64E(row[numeric[j]])
				if errX != nil || errY != nil {
					continue
				}
				if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
					continue
				}
				xs = append(xs, x)
				ys = append(ys, y)
			}
			if len(xs) < correlationMinPairs {
				continue
			}
			r, ok := pearson(xs, ys)
			if !ok || math.Abs(r) <= correlationThreshold {
				continue
			}

			direction := "positively"
			if r < 0 {
				direction = "negatively"
			}
			priority := models.PriorityMedium
			if math.Abs(r) > correlationHigh {
				priority = models.PriorityHigh
			}
			insights = append(insights, models.Insight{
				Type:  models.InsightTypeCorrelation,
				Title: fmt.Sprintf("%s and %s move together", numeric[i], numeric[j]),
				Description: fmt.Sprintf("%s and %s are %s correlated (r=%.2f over %d rows)",
					numeric[i], numeric[j], direction, r, len(xs)),
				Evidence:   []string{fmt.Sprintf("r=%.2f, n=%d", r, len(xs))},
				Actionable: true,
				Priority:   priority,
			})
		}
	}
	return insights
}

// pearson computes the Pearson correlation coefficient, clamped to [-1, 1].
// Returns false when either series has zero variance.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	if n == 0 {
		return 0, false
	}
	var sumX, sumY, sumXX, sumYY, sumXY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXX += xs[i] * xs[i]
		sumYY += ys[i] * ys[i]
		sumXY += xs[i] * ys[i]
	}
	denom := math.Sqrt((n*sumXX - sumX*sumX) * (n*sumYY - sumY*sumY))
	if denom == 0 {
		return 0, false
	}
	r := (n*sumXY - sumX*sumY) / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

// valueFrequencies tallies non-missing values of one column.
func valueFrequencies(column string, rows []map[string]any) (map[string]int, int) {
	freq := make(map[string]int)
	total := 0
	for _, row := range rows {
		v := row[column]
		if isMissingValue(v) {
			continue
		}
		freq[strings.TrimSpace(cast.ToString(v))]++
		total++
	}
	return freq, total
}
