// Package validate checks an extracted schedule before it is shown to a
// reviewer. Problems are reported, never fixed.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/installments-tracker/constants"
	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	"github.com/joseph-ayodele/installments-tracker/internal/layout"
)

// TotalTolerance is the rounding slack allowed between the summed amounts
// and an expected total, in major currency units. Differences up to and
// including it are not reported.
var TotalTolerance = decimal.RequireFromString("0.03")

// maxListedGaps caps how many missing numbers one gap warning spells out.
const maxListedGaps = 10

// Report partitions the rows and lists the warnings found.
type Report struct {
	Valid    []entity.Installment `json:"valid"`
	Invalid  []Invalid            `json:"invalid"`
	Warnings []string             `json:"warnings"`
	Total    decimal.Decimal      `json:"total"`
}

// Invalid is a row a reviewer has to repair, with the reasons.
type Invalid struct {
	Installment entity.Installment `json:"installment"`
	Reasons     []string           `json:"reasons"`
}

type Option func(*options)

type options struct {
	currency string
}

// WithCurrency sets the ISO 4217 code used when formatting amounts in warnings.
func WithCurrency(code string) Option {
	return func(o *options) { o.currency = code }
}

// Validate checks sequence contiguity and, when expectedTotal is non-nil,
// the amount sum. Every input row lands in exactly one of Valid or Invalid.
func Validate(items []entity.Installment, expectedTotal *decimal.Decimal, opts ...Option) Report {
	o := options{currency: constants.DefaultCurrency}
	for _, opt := range opts {
		opt(&o)
	}

	rep := Report{
		Valid:    make([]entity.Installment, 0, len(items)),
		Invalid:  []Invalid{},
		Warnings: []string{},
		Total:    decimal.Zero,
	}

	for _, it := range items {
		rep.Total = rep.Total.Add(it.Amount)
		if reasons := check(it); len(reasons) > 0 {
			rep.Invalid = append(rep.Invalid, Invalid{Installment: it, Reasons: reasons})
			continue
		}
		rep.Valid = append(rep.Valid, it)
	}

	rep.Warnings = append(rep.Warnings, gapWarnings(items)...)

	if expectedTotal != nil {
		diff := rep.Total.Sub(*expectedTotal).Abs()
		if diff.GreaterThan(TotalTolerance) {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("total mismatch: installments sum to %s, expected %s (difference %s)",
				Display(rep.Total, o.currency), Display(*expectedTotal, o.currency), Display(diff, o.currency)))
		}
	}
	return rep
}

func check(it entity.Installment) []string {
	var reasons []string
	if it.Seq <= 0 {
		reasons = append(reasons, "seq must be positive")
	}
	if !it.Amount.IsPositive() {
		reasons = append(reasons, "amount must be positive")
	}
	if !layout.IsISODate(it.DueDate) {
		reasons = append(reasons, fmt.Sprintf("due_date %q is not a YYYY-MM-DD date", it.DueDate))
	}
	return reasons
}

// gapWarnings emits one warning per break in the sorted distinct seq values.
func gapWarnings(items []entity.Installment) []string {
	seen := make(map[int]struct{}, len(items))
	var seqs []int
	for _, it := range items {
		if it.Seq <= 0 {
			continue
		}
		if _, dup := seen[it.Seq]; dup {
			continue
		}
		seen[it.Seq] = struct{}{}
		seqs = append(seqs, it.Seq)
	}
	sort.Ints(seqs)

	var out []string
	for i := 1; i < len(seqs); i++ {
		prev, cur := seqs[i-1], seqs[i]
		if cur-prev <= 1 {
			continue
		}
		var missing []string
		for s := prev + 1; s < cur && len(missing) < maxListedGaps; s++ {
			missing = append(missing, fmt.Sprintf("seq=%d", s))
		}
		if n := cur - prev - 1; n > maxListedGaps {
			missing = append(missing, fmt.Sprintf("and %d more", n-maxListedGaps))
		}
		out = append(out, fmt.Sprintf("sequence gap between %d and %d: missing %s", prev, cur, strings.Join(missing, ", ")))
	}
	return out
}

// separators overrides go-money's separators for currencies the schedules
// print the Italian way.
var separators = map[string][2]string{
	money.EUR: {",", "."},
}

// Display formats an amount for humans, e.g. "€1.200,00" for EUR and
// "$1,200.00" for USD.
func Display(d decimal.Decimal, currency string) string {
	c := money.GetCurrency(currency)
	if c == nil {
		return d.StringFixed(2) + " " + currency
	}
	minor := d.Shift(int32(c.Fraction)).Round(0).IntPart()
	sep, ok := separators[c.Code]
	if !ok {
		return money.New(minor, c.Code).Display()
	}
	return money.NewFormatter(c.Fraction, sep[0], sep[1], c.Grapheme, c.Template).Format(minor)
}
