package extract

import "github.com/joseph-ayodele/installments-tracker/internal/entity"

// Merge combines the text-layer and OCR results keyed by due date. On a
// collision the OCR row replaces the text row; fields the OCR row lacks are
// filled from the text row. The result is chronological with undated rows
// last.
func Merge(text, ocr []entity.Installment) []entity.Installment {
	out := make([]entity.Installment, 0, len(text)+len(ocr))
	index := make(map[string]int, len(text)+len(ocr))
	var undated []entity.Installment

	for _, r := range text {
		if r.DueDate == "" {
			undated = append(undated, r)
			continue
		}
		if i, ok := index[r.DueDate]; ok {
			out[i].Enrich(r)
			continue
		}
		index[r.DueDate] = len(out)
		out = append(out, r)
	}
	for _, r := range ocr {
		if r.DueDate == "" {
			undated = append(undated, r)
			continue
		}
		if i, ok := index[r.DueDate]; ok {
			prev := out[i]
			out[i] = r
			out[i].Enrich(prev)
			continue
		}
		index[r.DueDate] = len(out)
		out = append(out, r)
	}

	sortChronological(out)
	return append(out, undated...)
}
