// Package parse converts raw textual match fields into numbers and dates.
// None of the functions return errors: malformed input falls back to the
// caller-supplied default (or a zero time for dates).
package parse

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the 8-digit tournament date format used by the results files.
const DateLayout = "20060102"

// Float parses s as a float64. Empty, non-numeric and non-finite values
// (NaN, ±Inf) yield def.
func Float(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// Int parses s as a base-10 integer. Decimal strings such as "3.0" are
// rejected rather than truncated.
func Int(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// Date parses a YYYYMMDD string into a UTC calendar date. The second return
// value is false when the input is not a valid date; callers treat that
// record as unusable.
func Date(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
