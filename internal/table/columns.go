package table

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/joseph-ayodele/installments-tracker/internal/layout"
)

// ColumnKey names a known schedule column.
type ColumnKey string

const (
	ColSeq         ColumnKey = "seq"
	ColDate        ColumnKey = "date"
	ColDescrizione ColumnKey = "descrizione"
	ColTributo     ColumnKey = "tributo"
	ColAnno        ColumnKey = "anno"
	ColDebito      ColumnKey = "debito"
	ColInteressi   ColumnKey = "interessi"
	ColDaVersare   ColumnKey = "da_versare"
)

// ColumnBand is the x-range a column occupies, derived from the header line.
type ColumnBand struct {
	Key   ColumnKey
	X0    float64
	X1    float64
	Label string
}

func (b ColumnBand) Contains(x float64) bool { return x >= b.X0 && x <= b.X1 }
func (b ColumnBand) Center() float64         { return (b.X0 + b.X1) / 2 }

type columnHint struct {
	key   ColumnKey
	words []string
}

// Checked in order: the more specific amount columns come before the generic
// ones so "importo rata" is not read as a plain debt column.
var columnHints = []columnHint{
	{ColDaVersare, []string{"da versare", "importo rata", "totale rata", "da pagare", "rata da", "importo dovuto"}},
	{ColInteressi, []string{"interessi", "interesse", "quota interessi"}},
	{ColDebito, []string{"debito", "capitale", "quota capitale", "importo", "residuo"}},
	{ColDate, []string{"scadenza", "data", "entro il", "entro"}},
	{ColTributo, []string{"tributo", "codice", "cod."}},
	{ColAnno, []string{"anno", "periodo"}},
	{ColDescrizione, []string{"descrizione", "causale", "oggetto"}},
	{ColSeq, []string{"n.", "nr", "nr.", "num", "numero", "n°", "progr", "rata", "#"}},
}

// hintIndex scores whole lines against every hint at once. The matcher keeps
// per-call state, so calls are serialized.
type hintIndex struct {
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	keys    []ColumnKey
}

func newHintIndex() *hintIndex {
	var patterns [][]byte
	var keys []ColumnKey
	for _, h := range columnHints {
		for _, w := range h.words {
			// short hints only count as whole words
			if len(w) <= 3 {
				w = " " + w + " "
			}
			patterns = append(patterns, []byte(w))
			keys = append(keys, h.key)
		}
	}
	return &hintIndex{matcher: ahocorasick.NewMatcher(patterns), keys: keys}
}

// score returns the number of distinct column kinds mentioned in text.
func (h *hintIndex) score(text string) int {
	folded := " " + layout.Fold(text) + " "
	seen := make(map[ColumnKey]struct{})
	h.mu.Lock()
	hits := h.matcher.Match([]byte(folded))
	h.mu.Unlock()
	for _, idx := range hits {
		seen[h.keys[idx]] = struct{}{}
	}
	return len(seen)
}

// classify maps one header label to a column by keyword containment, falling
// back to an edit-distance comparison for OCR-damaged labels.
func classify(label string) (ColumnKey, bool) {
	folded := " " + layout.Fold(label) + " "
	for _, h := range columnHints {
		for _, w := range h.words {
			needle := w
			if len(w) <= 3 {
				needle = " " + w + " "
			}
			if strings.Contains(folded, needle) {
				return h.key, true
			}
		}
	}
	for _, word := range strings.Fields(folded) {
		if len(word) < 5 {
			continue
		}
		for _, h := range columnHints {
			for _, w := range h.words {
				if len(w) < 5 || strings.Contains(w, " ") {
					continue
				}
				if fuzzy.LevenshteinDistance(word, w) <= 1 {
					return h.key, true
				}
			}
		}
	}
	return "", false
}
