package pdfdoc

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/installments-tracker/internal/layout"
)

const (
	defaultPageHeight = 842.0 // A4
	defaultFontSize   = 10.0

	// glyphs further apart than this fraction of the font size start a new word
	wordGapFactor = 0.25
	// ascender share of the font size above the baseline
	ascent = 0.8
)

// pageHeight reads the MediaBox height, following Parent links for
// inherited boxes.
func pageHeight(v lpdf.Value) float64 {
	for depth := 0; depth < 16 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == lpdf.Array && box.Len() == 4 {
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if h > 0 {
				return h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageHeight
}

type wordBuilder struct {
	text     strings.Builder
	x0, x1   float64
	baseline float64
	size     float64
}

func (w *wordBuilder) empty() bool { return w.text.Len() == 0 }

func (w *wordBuilder) token(pageH float64) layout.Token {
	return layout.Token{
		Text:   w.text.String(),
		X:      w.x0,
		Y:      pageH - w.baseline - ascent*w.size,
		Width:  w.x1 - w.x0,
		Height: w.size,
	}
}

// MergeGlyphs joins text-layer glyph runs into word tokens and flips the
// y axis so the origin is the top-left corner of the page.
//
// A run may hold a single glyph or a whole string. Multi-character runs are
// split with an even advance of W/len per rune.
func MergeGlyphs(runs []lpdf.Text, pageH float64) []layout.Token {
	var (
		out []layout.Token
		cur wordBuilder
	)
	flush := func() {
		if !cur.empty() {
			out = append(out, cur.token(pageH))
		}
		cur = wordBuilder{}
	}

	for _, run := range runs {
		size := run.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		n := utf8.RuneCountInString(run.S)
		if n == 0 {
			continue
		}
		advance := run.W / float64(n)
		if advance <= 0 {
			advance = size * 0.5
		}

		x := run.X
		for _, r := range run.S {
			if unicode.IsSpace(r) || r == 0 {
				flush()
				x += advance
				continue
			}
			if !cur.empty() {
				gap := x - cur.x1
				sameLine := math.Abs(run.Y-cur.baseline) <= 0.3*math.Max(size, cur.size)
				if !sameLine || gap > wordGapFactor*size || gap < -size {
					flush()
				}
			}
			if cur.empty() {
				cur.x0 = x
				cur.baseline = run.Y
				cur.size = size
			}
			cur.text.WriteRune(r)
			cur.x1 = x + advance
			if size > cur.size {
				cur.size = size
			}
			x += advance
		}
	}
	flush()
	return out
}
