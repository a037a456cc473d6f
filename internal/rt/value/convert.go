package value

import (
	"strconv"
	"strings"
)

// parseFloat implements the permissive numeric-string grammar ToNumber
// relies on: surrounding whitespace is trimmed, an empty string is 0, and
// anything Go's strconv cannot parse falls through as a parse failure
// (the caller maps that to NaN, per spec ECMAScript ToNumber semantics).
func parseFloat(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, nil
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		i, err := strconv.ParseInt(trimmed[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return float64(i), nil
	}
	return strconv.ParseFloat(trimmed, 64)
}

// formatFloat implements the ECMAScript Number::toString radix-10 shape
// closely enough for the execution core's own diagnostics: shortest round
// trip representation, with the ECMAScript spellings for the non-finite
// cases.
func formatFloat(f float64) string {
	switch {
	case f != f: // NaN
		return "NaN"
	case f > 0 && f*2 == f: // +Inf, cheap check avoiding a math import here
		return "Infinity"
	case f < 0 && f*2 == f:
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
