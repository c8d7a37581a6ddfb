package models

// InsightType identifies the pattern an insight describes.
type InsightType string

const (
	InsightTypeConcentration   InsightType = "concentration"
	InsightTypeDominantValue   InsightType = "dominant_value"
	InsightTypeSegmentVariance InsightType = "segment_variance"
	InsightTypeGap             InsightType = "gap"
	InsightTypeCorrelation     InsightType = "correlation"
)

// Priority ranks insights for downstream narrative generation.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// weight orders priorities for ranking; higher sorts first.
func (p Priority) weight() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// MoreUrgentThan reports whether p outranks other.
func (p Priority) MoreUrgentThan(other Priority) bool {
	return p.weight() > other.weight()
}

// Insight is one discovered cross-column pattern with supporting evidence.
type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Evidence    []string    `json:"evidence,omitempty"`
	Actionable  bool        `json:"actionable"`
	Priority    Priority    `json:"priority"`
}
