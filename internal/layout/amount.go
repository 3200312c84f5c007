package layout

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// Italian convention: '.' thousands, ',' decimals.
	reITAmount = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+,\d{2}\b|\d+,\d{2}\b`)
	// English fallback: ',' thousands, '.' decimals.
	reENAmount = regexp.MustCompile(`\d{1,3}(?:,\d{3})+\.\d{2}\b|\d+\.\d{2}\b`)

	// whole stitched window: one IT amount, optionally wrapped in currency marks
	reAmountWindow = regexp.MustCompile(`^[^\d]*?((?:\d{1,3}(?:\.\s?\d{3})+|\d+),\s?\d{2})[^\d]*$`)
)

// ParseITAmount converts an Italian-formatted figure ("1.767,70") to a decimal.
func ParseITAmount(s string) (decimal.Decimal, bool) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseENAmount converts an English-formatted figure ("1,767.70") to a decimal.
func ParseENAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseAmount reads the first amount in s, preferring the Italian convention
// and falling back to the English one when no comma-decimal figure exists.
func ParseAmount(s string) (decimal.Decimal, bool) {
	if m := reITAmount.FindString(s); m != "" {
		return ParseITAmount(m)
	}
	if m := reENAmount.FindString(s); m != "" {
		return ParseENAmount(m)
	}
	return decimal.Zero, false
}

// LastAmount reads the right-most amount in s with the same convention
// preference as ParseAmount.
func LastAmount(s string) (decimal.Decimal, bool) {
	if all := reITAmount.FindAllString(s, -1); len(all) > 0 {
		return ParseITAmount(all[len(all)-1])
	}
	if all := reENAmount.FindAllString(s, -1); len(all) > 0 {
		return ParseENAmount(all[len(all)-1])
	}
	return decimal.Zero, false
}

// matchAmountWindow reports whether the stitched text is exactly one amount.
func matchAmountWindow(s string) (decimal.Decimal, bool) {
	m := reAmountWindow.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, false
	}
	return ParseITAmount(m[1])
}
