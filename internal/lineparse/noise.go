package lineparse

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/installments-tracker/internal/layout"
)

// minLineLength is the shortest line that can carry a date and an amount.
const minLineLength = 12

var noiseKeywords = []string{
	"pagina",
	"pag.",
	"page ",
	"riepilogo",
	"codice fiscale",
	"partita iva",
	"intestatario",
	"gentile",
	"si comunica",
	"data di emissione",
	"data emissione",
	"data di notifica",
	"iban",
	"www.",
	"http",
	"firma",
}

var headerSignatures = []*regexp.Regexp{
	regexp.MustCompile(`^\W*(?:n\.?|nr\.?|num\.?|numero)\s*(?:rata|rate)\b`),
	regexp.MustCompile(`\bscadenza\b.*\b(?:importo|debito|da versare)\b`),
	regexp.MustCompile(`\b(?:importo|debito)\b.*\bscadenza\b`),
}

// IsNoise reports whether a line is a header, footer or boilerplate line that
// never holds an installment, whatever profile is active.
func IsNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < minLineLength {
		return true
	}
	if layout.IsGrandTotal(trimmed) {
		return true
	}
	f := layout.Fold(trimmed)
	for _, kw := range noiseKeywords {
		if strings.Contains(f, kw) {
			return true
		}
	}
	for _, re := range headerSignatures {
		if re.MatchString(f) {
			return true
		}
	}
	return false
}
