// Package core holds the SGR domain model: project rows, monetary values,
// filters and aggregates.
//
// Monetary values are kept as COP cents. Upstream delivers them as strings;
// anything unparseable becomes an invalid Money that aggregation skips, so a
// single malformed row never aborts the pipeline.
package core

import (
	"math"
	"strconv"
	"strings"
)

// Money is a COP amount in cents. Valid is false for missing or malformed
// source values; invalid amounts are excluded from sums.
type Money struct {
	Cents int64
	Valid bool
}

// ParseMoney coerces an upstream monetary string.
//
// It tolerates surrounding whitespace, a leading "$" and thousands commas.
// Negative and non-numeric values coerce to an invalid Money rather than an
// error: the pipeline treats them as missing.
func ParseMoney(s string) Money {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return Money{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Money{}
	}
	return Money{Cents: int64(math.Round(v * 100)), Valid: true}
}

// Pesos returns the peso value as float64, for display and chart encoding.
func (m Money) Pesos() float64 {
	return float64(m.Cents) / 100.0
}

// Sub returns m minus o clipped at zero. Result is invalid when either
// operand is, which keeps derived balances out of sums for malformed rows.
func (m Money) Sub(o Money) Money {
	if !m.Valid || !o.Valid {
		return Money{}
	}
	d := m.Cents - o.Cents
	if d < 0 {
		d = 0
	}
	return Money{Cents: d, Valid: true}
}

// FormatAbbrev renders cents as abbreviated currency: $1.5M, $2.3B, $4.1T.
func FormatAbbrev(cents int64) string {
	v := float64(cents) / 100.0
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e12:
		return sign + "$" + strconv.FormatFloat(v/1e12, 'f', 1, 64) + "T"
	case v >= 1e9:
		return sign + "$" + strconv.FormatFloat(v/1e9, 'f', 1, 64) + "B"
	case v >= 1e6:
		return sign + "$" + strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case v >= 1e3:
		return sign + "$" + strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	default:
		return sign + "$" + strconv.FormatFloat(v, 'f', 0, 64)
	}
}
