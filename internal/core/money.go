// Package core provides money parsing and handling utilities.
//
// Amounts are decimal.Decimal throughout. Storage layers that keep integer
// cents convert with ToCents and FromCents.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

func init() {
	// The statement service and the UI exchange amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseAmount converts a statement amount string to a decimal.
//
// It accepts dot or comma decimal separators, thousands separators when
// both appear, a leading sign, and a trailing "CR" marking a credit, which
// negates the value.
//
// Examples:
//
//	ParseAmount("12.34")       -> 12.34
//	ParseAmount("12,34")       -> 12.34
//	ParseAmount("1,234.50")    -> 1234.5
//	ParseAmount("5,000.00 CR") -> -5000
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	credit := false
	if upper := strings.ToUpper(s); strings.HasSuffix(upper, "CR") {
		credit = true
		s = strings.TrimSpace(s[:len(s)-2])
	}
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else if strings.Count(s, ",") == 1 {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if credit {
		d = d.Neg()
	}
	return d, nil
}

// ToCents converts an amount to integer cents, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatAmount renders an amount with two decimals and thousands separators.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
