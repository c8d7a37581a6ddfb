package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pulseboard/insights-engine/pkg/models"
)

// DefaultSampleSize bounds how many non-missing values classification reads.
const DefaultSampleSize = 100

// datePatterns match common date string forms before the generic parse runs.
// Patterns are matched against column DATA, not column names.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2})?)?`),
	regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
	regexp.MustCompile(`^\d{1,2}-[A-Za-z]{3}-\d{2,4}$`),
	regexp.MustCompile(`^[A-Za-z]{3,9} \d{1,2}, \d{4}$`),
}

// dateLayouts back the generic date parse for values the regexes let through.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"2-Jan-2006",
	"2-Jan-06",
	"January 2, 2006",
	"Jan 2, 2006",
}

// Years outside this window mean the parse hit a lookalike, not a date.
const (
	minSaneYear = 1900
	maxSaneYear = 2100
)

// ClassifyColumnType infers a column's semantic type from a bounded sample of
// its values (first sampleSize non-missing; 0 means DefaultSampleSize).
//
// If the sample resolves to exactly one type, that type wins. If exactly two
// types appear and one is numeric, the column is numeric: sparse non-numeric
// noise in an otherwise numeric column is tolerated. Anything else is mixed.
// All-missing columns default to string. Never fails.
func ClassifyColumnType(values []any, sampleSize int) models.DataType {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	seen := make(map[models.DataType]bool)
	sampled := 0
	for _, v := range values {
		if isMissingValue(v) {
			continue
		}
		seen[classifyValue(v)] = true
		sampled++
		if sampled >= sampleSize {
			break
		}
	}

	switch len(seen) {
	case 0:
		return models.DataTypeString
	case 1:
		for t := range seen {
			return t
		}
	case 2:
		if seen[models.DataTypeNumeric] {
			return models.DataTypeNumeric
		}
	}
	return models.DataTypeMixed
}

// classifyValue decides the type of a single value.
func classifyValue(v any) models.DataType {
	switch t := v.(type) {
	case bool:
		return models.DataTypeBoolean
	case time.Time:
		return models.DataTypeDate
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return models.DataTypeNumeric
	case string:
		return classifyString(t)
	default:
		return models.DataTypeString
	}
}

func classifyString(s string) models.DataType {
	s = strings.TrimSpace(s)
	if isBooleanLiteral(s) {
		return models.DataTypeBoolean
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return models.DataTypeNumeric
	}
	if looksLikeDate(s) {
		return models.DataTypeDate
	}
	return models.DataTypeString
}

func isBooleanLiteral(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}

// looksLikeDate requires a recognized date form AND a successful parse
// landing in a sane year. Bare numbers never reach here: numeric parsing
// takes precedence, so "2024" stays numeric.
func looksLikeDate(s string) bool {
	matched := false
	for _, p := range datePatterns {
		if p.MatchString(s) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if y := t.Year(); y >= minSaneYear && y <= maxSaneYear {
			return true
		}
	}
	return false
}

// isMissingValue reports whether a profiling-branch value counts as null.
func isMissingValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
