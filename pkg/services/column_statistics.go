package services

import (
	"math"
	"sort"

	"github.com/pulseboard/insights-engine/pkg/models"
)

// CalculateNumericStats computes the numeric statistics branch for one
// column. Non-finite inputs are dropped before anything is computed.
// Empty input returns an empty partial result, never an error.
//
// Variance and standard deviation are population figures (divide by n).
// Quartiles use nearest-rank indexing into the ascending sort:
// q1 = sorted[floor(0.25n)], q3 = sorted[floor(0.75n)].
func CalculateNumericStats(values []float64) *models.NumericStats {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return &models.NumericStats{Distribution: models.DistributionUnknown}
	}

	sorted := make([]float64, len(finite))
	copy(sorted, finite)
	sort.Float64s(sorted)
	n := len(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	variance := 0.0
	for _, v := range sorted {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)
	stdDev := math.Sqrt(variance)

	q1, q3 := nearestRankQuartiles(sorted)

	skewness := 0.0
	if stdDev > 0 {
		for _, v := range sorted {
			z := (v - mean) / stdDev
			skewness += z * z * z
		}
		skewness /= float64(n)
	}

	return &models.NumericStats{
		Min:          round2(sorted[0]),
		Max:          round2(sorted[n-1]),
		Sum:          round2(sum),
		Mean:         round2(mean),
		Median:       round2(median),
		StdDev:       round2(stdDev),
		Q1:           round2(q1),
		Q3:           round2(q3),
		IQR:          round2(q3 - q1),
		Skewness:     round2(skewness),
		Distribution: classifyDistribution(stdDev, skewness),
	}
}

// nearestRankQuartiles indexes the ascending sort at floor(0.25n) and
// floor(0.75n). The anomaly detector's Tukey fences use the same definition.
func nearestRankQuartiles(sorted []float64) (q1, q3 float64) {
	n := len(sorted)
	if n == 0 {
		return 0, 0
	}
	return sorted[int(float64(n)*0.25)], sorted[int(float64(n)*0.75)]
}

// classifyDistribution tags the distribution from skewness alone.
// A zero standard deviation leaves skewness undefined, hence unknown.
func classifyDistribution(stdDev, skewness float64) models.Distribution {
	if stdDev == 0 {
		return models.DistributionUnknown
	}
	switch {
	case math.Abs(skewness) < 0.5:
		return models.DistributionNormal
	case skewness < -0.5:
		return models.DistributionSkewedLeft
	case skewness > 0.5:
		return models.DistributionSkewedRight
	default:
		return models.DistributionUnknown
	}
}

// CalculateCategoricalStats computes the categorical statistics branch:
// string length range and a frequency table of the topK most common values
// with their percentage of the non-missing total (1 decimal).
// topK <= 0 defaults to 10. Empty input returns an empty partial result.
func CalculateCategoricalStats(values []string, topK int) *models.CategoricalStats {
	if topK <= 0 {
		topK = 10
	}
	if len(values) == 0 {
		return &models.CategoricalStats{}
	}

	minLen, maxLen := len(values[0]), len(values[0])
	freq := make(map[string]int, len(values))
	for _, v := range values {
		if l := len(v); l < minLen {
			minLen = l
		} else if l > maxLen {
			maxLen = l
		}
		freq[v]++
	}

	top := make([]models.ValueCount, 0, len(freq))
	for v, c := range freq {
		top = append(top, models.ValueCount{Value: v, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count == top[j].Count {
			return top[i].Value < top[j].Value
		}
		return top[i].Count > top[j].Count
	})
	if len(top) > topK {
		top = top[:topK]
	}
	total := float64(len(values))
	for i := range top {
		top[i].Percent = round1(float64(top[i].Count) / total * 100)
	}

	return &models.CategoricalStats{
		MinLength: minLen,
		MaxLength: maxLen,
		TopValues: top,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
