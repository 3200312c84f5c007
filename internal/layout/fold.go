package layout

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips diacritics and collapses whitespace so keyword
// tables can be matched against both text-layer and OCR output.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

var grandTotalPhrases = []string{
	"totale complessivo",
	"totale generale",
	"totale dovuto",
	"totale da versare",
	"totale piano",
	"totale rateizzazione",
	"importo complessivo",
	"importo totale",
	"grand total",
	"total amount",
}

// IsGrandTotal reports whether text is a document summary line that must never
// become an installment.
func IsGrandTotal(text string) bool {
	f := Fold(text)
	if strings.HasPrefix(strings.TrimLeft(f, " *-:"), "totale ") || f == "totale" {
		return true
	}
	for _, p := range grandTotalPhrases {
		if strings.Contains(f, p) {
			return true
		}
	}
	return false
}
