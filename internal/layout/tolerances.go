package layout

import "math"

// Tolerances are the geometric thresholds used by row grouping, stitching and
// column banding. All values are PDF points.
type Tolerances struct {
	RowTolerance     float64 // max |Δy| between a token center and a line's representative Y
	BandMargin       float64 // widening applied to both sides of each column band
	HeaderGap        float64 // horizontal gap that splits header tokens into columns
	AmountBandFactor float64 // amount search band is max(RowTolerance, factor*glyph height)
	GlueFactor       float64 // neighbours closer than factor*glyph height are glued without a space
	HeaderScanLines  int     // leading lines scored as header candidates
}

// TextLayerTolerances suits exact text-layer positions.
func TextLayerTolerances() Tolerances {
	return Tolerances{
		RowTolerance:     3,
		BandMargin:       4,
		HeaderGap:        15,
		AmountBandFactor: 0.6,
		GlueFactor:       0.3,
		HeaderScanLines:  15,
	}
}

// OCRTolerances suits OCR word boxes mapped back to points; box centers
// jitter, so rows and bands are looser.
func OCRTolerances() Tolerances {
	return Tolerances{
		RowTolerance:     6,
		BandMargin:       8,
		HeaderGap:        15,
		AmountBandFactor: 1.0,
		GlueFactor:       0.45,
		HeaderScanLines:  20,
	}
}

// AmountBand is the vertical search radius around a date anchor of the given height.
func (t Tolerances) AmountBand(height float64) float64 {
	return math.Max(t.RowTolerance, t.AmountBandFactor*height)
}

// Glue is the gap under which two tokens of the given height are one word.
func (t Tolerances) Glue(height float64) float64 {
	return t.GlueFactor * height
}
