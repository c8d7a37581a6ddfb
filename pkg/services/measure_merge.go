package services

import (
	"github.com/pulseboard/insights-engine/pkg/models"
)

// MergeMeasures folds incoming measures into existing ones, keyed by label.
// It returns a new slice and never mutates either input: merging is an
// explicit reducer folded over sources in arrival order, not in-place
// accumulation.
//
// Non-rate measures add sums and counts and recompute the average. Rate
// measures are replaced wholesale by whichever source carries the larger
// sample count: summing two percentages is semantically invalid, and
// averaging them would silently weight sources equally.
func MergeMeasures(existing, incoming []models.MeasureInfo) []models.MeasureInfo {
	merged := make([]models.MeasureInfo, len(existing))
	copy(merged, existing)
	index := make(map[string]int, len(merged))
	for i, m := range merged {
		index[m.Name] = i
	}

	for _, in := range incoming {
		i, ok := index[in.Name]
		if !ok {
			index[in.Name] = len(merged)
			merged = append(merged, in)
			continue
		}
		merged[i] = mergeMeasure(merged[i], in)
	}
	return merged
}

// mergeMeasure combines two samples of the same measure.
func mergeMeasure(existing, incoming models.MeasureInfo) models.MeasureInfo {
	if existing.IsRate || incoming.IsRate {
		// Larger sample wins outright.
		if incoming.Count > existing.Count {
			return incoming
		}
		return existing
	}

	out := existing
	out.Sum += incoming.Sum
	out.Count += incoming.Count
	if out.Count > 0 {
		out.Avg = out.Sum / float64(out.Count)
	}
	if incoming.Min < out.Min {
		out.Min = incoming.Min
	}
	if incoming.Max > out.Max {
		out.Max = incoming.Max
	}
	out.Values = append(append([]float64(nil), existing.Values...), incoming.Values...)
	return out
}

// MergeBreakdowns combines breakdown lists from multiple sources. Distinct
// (measure, dimension) pairs append; when both sources carry the same pair,
// the one backed by more rows wins, mirroring the rate-measure policy.
func MergeBreakdowns(existing, incoming []models.BreakdownData) []models.BreakdownData {
	merged := make([]models.BreakdownData, len(existing))
	copy(merged, existing)
	index := make(map[string]int, len(merged))
	for i, b := range merged {
		index[b.Measure+"\x00"+b.Dimension] = i
	}

	for _, in := range incoming {
		key := in.Measure + "\x00" + in.Dimension
		i, ok := index[key]
		if !ok {
			index[key] = len(merged)
			merged = append(merged, in)
			continue
		}
		if in.TotalCount() > merged[i].TotalCount() {
			merged[i] = in
		}
	}
	return merged
}

// MergeDateRanges widens a into the union of both ranges.
func MergeDateRanges(a, b *models.DateRange) *models.DateRange {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := *a
	if b.Min.Before(out.Min) {
		out.Min = b.Min
	}
	if b.Max.After(out.Max) {
		out.Max = b.Max
	}
	return &out
}
