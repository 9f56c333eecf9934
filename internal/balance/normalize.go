// Package balance extracts the capital-structure inputs from a structured
// balance-sheet export: cash, noncontrolling interests, company identity,
// and the selected reporting period.
package balance

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/capstruct/internal/model"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// safeFloat coerces a loosely-typed JSON value into a float. Strings are
// stripped of thousands separators; "-", "—" and empty map to nil.
func safeFloat(x any) *float64 {
	switch v := x.(type) {
	case nil:
		return nil
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		t := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if t == "" || t == "-" || t == "—" {
			return nil
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// safeInt coerces a loosely-typed JSON value into an int.
func safeInt(x any) (int, bool) {
	f := safeFloat(x)
	if f == nil {
		return 0, false
	}
	return int(*f), true
}

// ToMillions converts a balance-sheet value object into $mm.
//
// If numeric_value is present it is treated as absolute dollars and divided
// by 1e6. Otherwise display_value is parsed and multiplied by
// 10^(scale-6), with scale defaulting to 6 when absent or non-numeric.
// Malformed input yields nil, never an error.
func ToMillions(v model.ValueObject) *float64 {
	if nv := safeFloat(v.NumericValue); nv != nil {
		mm := *nv / 1e6
		return &mm
	}

	dv := safeFloat(v.DisplayValue)
	if dv == nil {
		return nil
	}

	scale := 6
	if s, ok := safeInt(v.Scale); ok {
		scale = s
	}

	mm := *dv * math.Pow10(scale-6)
	return &mm
}

// normLabel lowercases, strips punctuation and collapses whitespace so
// label keyword matching survives hyphens and ampersands.
func normLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}

// round3 keeps monetary outputs at 3 decimals.
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// Round3 rounds a nullable $mm figure to 3 decimals.
func Round3(x *float64) *float64 {
	if x == nil {
		return nil
	}
	r := round3(*x)
	return &r
}
