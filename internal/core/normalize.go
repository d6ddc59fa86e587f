package core

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DeptKey normalizes a department name for joining: trimmed, upper-cased and
// accent-stripped. "Bogotá D.C." and "BOGOTA D.C." produce the same key.
func DeptKey(name string) string {
	s, _, _ := transform.String(deaccent, strings.TrimSpace(name))
	return strings.ToUpper(s)
}

// ParseDeptCode coerces a raw department DANE code. Upstream encodes it with
// three trailing zeros (e.g. "05000" for Antioquia, code 5).
func ParseDeptCode(raw string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 {
		return 0, ErrInvalidDaneCode
	}
	return int(v) / 1000, nil
}

// ParseEntityCode coerces a raw municipality/entity DANE code. Codes that are
// an even multiple of 1000 carry the same trailing-zero padding as department
// codes and are divided down; others are already municipality-level.
func ParseEntityCode(raw string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 {
		return 0, ErrInvalidDaneCode
	}
	code := int64(v)
	if code%1000 == 0 {
		code /= 1000
	}
	return code, nil
}
