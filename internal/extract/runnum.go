package extract

import (
	"regexp"
	"strconv"
)

// runNumberRe captures an explicit run number: "#1506", "Trail# 2298",
// "Run 42.5", "No. 7". The fractional half is how kennels number
// supplementary runs squeezed between two regular ones.
var runNumberRe = regexp.MustCompile(`(?i)(?:#|№|\bno\.?\s+|\brun\s+|\btrail\s*#?\s*)(\d{1,5}(?:\.5)?)\b`)

// RunNumber extracts an explicit run number from text. Half-integers are
// preserved. Returns ok=false when no marked run number is present; bare
// numbers without a marker are not trusted.
func RunNumber(text string) (float64, bool) {
	m := runNumberRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ContextLimit bounds how much raw source text a parse error carries.
// Enough to support a manual or automated recovery pass, small enough to
// keep error lists readable.
const ContextLimit = 240

// Truncate clips raw context for inclusion in a parse error.
func Truncate(raw string) string {
	if len(raw) <= ContextLimit {
		return raw
	}
	return raw[:ContextLimit] + "…"
}
