package ocr

import (
	"strings"

	"github.com/joseph-ayodele/installments-tracker/internal/layout"
)

// TextConfidence is a heuristic 0..1 score for engines that report no
// per-word confidence. Schedules carry dates and amounts on most lines.
func TextConfidence(txt string) float64 {
	score := 0.2 // base
	var lines, dated, priced int
	for _, ln := range strings.Split(txt, "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		lines++
		if _, _, ok := layout.FindDate(ln); ok {
			dated++
		}
		if _, ok := layout.LastAmount(ln); ok {
			priced++
		}
	}
	if lines == 0 {
		return 0
	}
	score += 0.4 * float64(dated) / float64(lines)
	score += 0.3 * float64(priced) / float64(lines)
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
