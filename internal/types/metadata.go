package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// METADATA VALUE EXTRACTION
// =============================================================================
//
// Metadata values arrive from JSON decoding (float64, json.Number), CLI flags
// (string) or Go callers (int, int64). These helpers never panic on a type
// mismatch; they report ok=false instead.

// ExtractString returns a string form of v.
func ExtractString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", x)
	}
}

// ExtractFloat64 extracts a finite float from v.
func ExtractFloat64(v interface{}) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ExtractInt64 extracts an integer from v, truncating fractional values.
// Values outside the int64 range saturate at its bounds.
func ExtractInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	}
	f, ok := ExtractFloat64(v)
	if !ok {
		return 0, false
	}
	switch {
	case f >= math.MaxInt64: // 2^63 is not representable
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(f), true
}

// String returns the string value stored under key, or "".
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	return ExtractString(m[key])
}

// Int64 returns the integer value stored under key.
func (m Metadata) Int64(key string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return ExtractInt64(v)
}
