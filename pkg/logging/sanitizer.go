package logging

import (
	"regexp"

	"go.uber.org/zap"
)

const (
	// MaxValueLogLength is the maximum length of a cell value to log
	MaxValueLogLength = 64
	// MaskedText is the replacement text for personal data
	MaskedText = "[MASKED]"
)

// Cell values come straight from customer query results, so anything that
// looks like personal data is masked before it reaches a log line.
var (
	emailPattern = regexp.MustCompile(`[^@\s]+@[^@\s]+\.[^@\s]+`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
)

// SanitizeValue masks personal data in a cell value and truncates it.
// Use this before logging any value sampled from source data.
func SanitizeValue(v string) string {
	if v == "" {
		return ""
	}
	sanitized := emailPattern.ReplaceAllString(v, MaskedText)
	sanitized = phonePattern.ReplaceAllString(sanitized, MaskedText)
	return TruncateString(sanitized, MaxValueLogLength)
}

// SanitizeValues sanitizes a bounded sample of cell values for logging.
func SanitizeValues(values []string, limit int) []string {
	if limit <= 0 || limit > len(values) {
		limit = len(values)
	}
	out := make([]string, 0, limit)
	for _, v := range values[:limit] {
		out = append(out, SanitizeValue(v))
	}
	return out
}

// ValueSample returns a zap field with a sanitized sample of column values.
func ValueSample(key string, values []string) zap.Field {
	return zap.Strings(key, SanitizeValues(values, 5))
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
