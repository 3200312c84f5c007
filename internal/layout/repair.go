package layout

import "strings"

const confusable = "OoQlI|SB"

var ocrDigitFixes = strings.NewReplacer(
	"O", "0", "o", "0", "Q", "0",
	"l", "1", "I", "1", "|", "1",
	"S", "5", "B", "8",
)

// RepairDigits undoes common OCR character confusions in tokens that are
// mostly numeric ("1O/O6/2O24" becomes "10/06/2024"). A token with at least
// one digit and only confusable letters is repaired however many of them
// there are ("l.2OO,OO" becomes "1.200,00"). Words are left alone.
func RepairDigits(s string) string {
	var digits, seps, lookalikes, other int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune("./-,", r):
			seps++
		case strings.ContainsRune(confusable, r):
			lookalikes++
		default:
			other++
		}
	}
	if digits == 0 || lookalikes == 0 {
		return s
	}
	if other > 0 && digits+seps <= lookalikes+other {
		return s
	}
	return ocrDigitFixes.Replace(s)
}

// RepairTokens applies RepairDigits to every token.
func RepairTokens(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		t.Text = RepairDigits(t.Text)
		out[i] = t
	}
	return out
}
