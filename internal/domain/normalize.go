package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the day-precision layout used on the wire.
const DateLayout = "2006-01-02"

// The normalizers below are total: unrecognized input degrades to the zero
// value of the canonical form instead of failing.

// NormalizeString trims a string-like value. Anything absent becomes "".
func NormalizeString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case *string:
		if s == nil {
			return ""
		}
		return strings.TrimSpace(*s)
	case []byte:
		return strings.TrimSpace(string(s))
	case json.Number:
		return strings.TrimSpace(s.String())
	case fmt.Stringer:
		return strings.TrimSpace(s.String())
	default:
		return ""
	}
}

// NormalizeAmount coerces an amount into a non-negative minor-unit integer.
func NormalizeAmount(v any) int64 {
	return abs(toInt64(v))
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return uintToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case *int64:
		if n == nil {
			return 0
		}
		return *n
	case *big.Int:
		if n == nil || !n.IsInt64() {
			return 0
		}
		return n.Int64()
	case decimal.Decimal:
		return decimalToInt64(n)
	case json.Number:
		return parseAmount(n.String())
	case string:
		return parseAmount(n)
	case *string:
		if n == nil {
			return 0
		}
		return parseAmount(*n)
	default:
		return 0
	}
}

func parseAmount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}

	return decimalToInt64(d)
}

func decimalToInt64(d decimal.Decimal) int64 {
	bi := d.Truncate(0).BigInt()
	if !bi.IsInt64() {
		return 0
	}

	return bi.Int64()
}

func floatToInt64(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}

	f = math.Trunc(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}

	return int64(f)
}

func uintToInt64(u uint64) int64 {
	if u > math.MaxInt64 {
		return 0
	}

	return int64(u)
}

func abs(n int64) int64 {
	if n == math.MinInt64 {
		return 0
	}
	if n < 0 {
		return -n
	}

	return n
}

// NormalizeDate reduces a date-like value to midnight UTC of its calendar day.
// Time-of-day never takes part in comparisons.
func NormalizeDate(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return truncateDay(t)
	case *time.Time:
		if t == nil {
			return time.Time{}
		}
		return truncateDay(*t)
	case string:
		return parseDate(t)
	case *string:
		if t == nil {
			return time.Time{}
		}
		return parseDate(*t)
	default:
		return time.Time{}
	}
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	for _, layout := range []string{DateLayout, time.RFC3339, time.RFC3339Nano, "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t)
		}
	}

	return time.Time{}
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}

	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay compares two dates at day granularity.
func SameDay(a, b time.Time) bool {
	return NormalizeDate(a).Equal(NormalizeDate(b))
}

// NormalizeIDs returns a copy of an id list with non-positive ids dropped.
// Order is preserved. The result is never nil.
func NormalizeIDs(v any) []int64 {
	var ids []int64

	switch list := v.(type) {
	case []int64:
		ids = list
	case []int:
		for _, id := range list {
			ids = append(ids, int64(id))
		}
	case []json.Number:
		for _, id := range list {
			ids = append(ids, toInt64(id))
		}
	case []string:
		for _, id := range list {
			ids = append(ids, toInt64(id))
		}
	}

	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}

	return out
}

// JoinLabels trims each label, drops empties and joins them with commas.
func JoinLabels(labels []string) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}

	return strings.Join(parts, ",")
}
