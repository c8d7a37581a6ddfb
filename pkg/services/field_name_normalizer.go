package services

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
)

// NormalizeContext carries the caller-side knowledge the normalizer needs.
type NormalizeContext struct {
	// Overrides maps exact raw field names to labels.
	Overrides map[string]string
	// IsRate marks the field as a rate, appending " Rate" to generic labels.
	IsRate bool
	// EntityHint names the counted entity for context-free count aggregates.
	EntityHint string
}

// Date-part function names such as MONTH(Order Date).
var datePartFuncs = map[string]bool{
	"day": true, "month": true, "year": true, "week": true, "quarter": true,
	"hour": true, "minute": true, "second": true, "datepart": true, "datename": true,
}

var (
	datePartPattern = regexp.MustCompile(`(?i)^([a-z]+)\((.*)\)$`)
	// Upstream sometimes truncates field names mid-expression; the missing
	// closing paren form is recognized identically.
	datePartOpenPattern = regexp.MustCompile(`(?i)^([a-z]+)\((.+)$`)

	aggregationWrapPattern = regexp.MustCompile(`(?i)^(sum|avg|cntd|count|attr|min|max|median|stdev|var|agg)\((.*)\)$`)
	countAggPattern        = regexp.MustCompile(`(?i)^(count|cntd)\(`)
)

// recordReferenceTokens mark aggregation targets that denote the record
// itself rather than any particular field.
var recordReferenceTokens = []string{"id", "record", "*"}

// fixedLabels maps bare lexical field names to their conventional labels.
var fixedLabels = map[string]string{
	"open":        "Open Rate",
	"click":       "Click Rate",
	"bounce":      "Bounce Rate",
	"unsubscribe": "Unsubscribe Rate",
	"conversion":  "Conversion Rate",
	"ctr":         "Click-Through Rate",
	"delivered":   "Delivered",
	"sent":        "Sent",
	"spend":       "Spend",
}

// NormalizeFieldName turns a raw, often aggregation-wrapped field name into a
// human-readable label. The rules form an ordered first-match-wins policy:
// exact overrides, date-part functions, aggregation unwrapping, generic
// record counts, fixed lexical labels, and finally title-casing.
// Pure; returns the input unchanged if empty.
func NormalizeFieldName(name string, ctx NormalizeContext) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}

	// 1. Exact override: raw name, with a trailing paren restored, and with
	// one stripped. Covers sources that truncate or pad the closing paren.
	if label, ok := lookupOverride(name, ctx.Overrides); ok {
		return label
	}

	// 2. Date-part function: "MONTH(Order Date)" -> "Month of Order Date".
	if label, ok := normalizeDatePart(name, ctx); ok {
		return label
	}

	// 3. Strip up to two layers of aggregation wrapping.
	stripped := name
	countStyle := false
	for i := 0; i < 2; i++ {
		m := aggregationWrapPattern.FindStringSubmatch(stripped)
		if m == nil {
			break
		}
		if countAggPattern.MatchString(stripped) {
			countStyle = true
		}
		stripped = strings.TrimSpace(m[2])
	}

	// 4. A count over a generic record reference is a row count; name the
	// entity when the caller supplied one.
	if countStyle && isRecordReference(stripped) {
		if ctx.EntityHint != "" {
			return "Total " + inflection.Plural(ctx.EntityHint)
		}
		return "Record Count"
	}

	// 5. Fixed lexical mapping.
	if label, ok := fixedLabels[strings.ToLower(stripped)]; ok {
		return label
	}

	// 6. Title-case, with a " Rate" suffix when context marks a rate.
	label := titleCaseTokens(stripped)
	if ctx.IsRate && !strings.Contains(label, "Rate") {
		label += " Rate"
	}
	return label
}

func lookupOverride(name string, overrides map[string]string) (string, bool) {
	if len(overrides) == 0 {
		return "", false
	}
	for _, candidate := range []string{name, name + ")", strings.TrimSuffix(name, ")")} {
		if label, ok := overrides[candidate]; ok {
			return label, true
		}
	}
	return "", false
}

// normalizeDatePart renders "FUNC(field)" as "Func of <field>", recursing
// into the inner field. The unbalanced-paren variant parses identically.
func normalizeDatePart(name string, ctx NormalizeContext) (string, bool) {
	m := datePartPattern.FindStringSubmatch(name)
	if m == nil {
		m = datePartOpenPattern.FindStringSubmatch(name)
	}
	if m == nil || !datePartFuncs[strings.ToLower(m[1])] {
		return "", false
	}
	fn := titleCaseTokens(strings.ToLower(m[1]))
	inner := NormalizeFieldName(strings.TrimSpace(m[2]), NormalizeContext{
		Overrides:  ctx.Overrides,
		EntityHint: ctx.EntityHint,
	})
	if inner == "" {
		return fn, true
	}
	return fn + " of " + inner, true
}

func isRecordReference(field string) bool {
	lower := strings.ToLower(strings.TrimSpace(field))
	if lower == "" {
		return false
	}
	for _, token := range recordReferenceTokens {
		if lower == token {
			return true
		}
	}
	return strings.Contains(lower, "record")
}

// titleCaseTokens splits on separators and capitalizes each token, keeping
// existing interior capitals ("orderID" -> "OrderID").
func titleCaseTokens(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		r := []rune(tok)
		if r[0] >= 'a' && r[0] <= 'z' {
			r[0] -= 'a' - 'A'
		}
		tokens[i] = string(r)
	}
	return strings.Join(tokens, " ")
}
