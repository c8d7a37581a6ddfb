package models

// AnomalyType identifies the rule that produced an anomaly.
type AnomalyType string

const (
	AnomalyTypeOutlier        AnomalyType = "outlier"
	AnomalyTypeNegativeValues AnomalyType = "negative_values"
	AnomalyTypeNullSpike      AnomalyType = "null_spike"
	AnomalyTypeDuplicateKeys  AnomalyType = "duplicate_keys"
)

// Severity grades how urgent an anomaly is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AnomalySample is one offending value with the row it came from.
type AnomalySample struct {
	Value    float64 `json:"value"`
	RowIndex int     `json:"row_index"`
}

// Anomaly is one detected data issue on a single column. A column may carry
// zero, one, or several anomalies across the independent detection rules.
type Anomaly struct {
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Column      string      `json:"column"`
	Description string      `json:"description"`

	// Samples carries up to 10 (value, row index) pairs for numeric rules.
	Samples []AnomalySample `json:"samples,omitempty"`

	// SampleValues carries offending values for string rules, e.g.
	// duplicate groups rendered as "value (3x)".
	SampleValues []string `json:"sample_values,omitempty"`

	Suggestion string `json:"suggestion,omitempty"`
}
