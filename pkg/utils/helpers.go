package utils

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseDuration safely parses duration string like "5m"
func ParseDuration(d string) time.Duration {
	if d == "" {
		return 5 * time.Minute
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return 5 * time.Minute
	}
	return duration
}

// ParseNumber coerces a cell to a finite float64. Empty cells, text,
// NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParsePeriod coerces a cell to an integral period. Fractional values are
// truncated toward zero ("2005.0" and "2005.7" are both 2005).
func ParsePeriod(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	f, ok := ParseNumber(s)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
