// Package layout holds the geometric primitives shared by the text-layer and
// OCR passes: positioned tokens, row grouping and date/amount stitching.
package layout

import (
	"math"
	"sort"
	"strings"
)

// Token is a positioned text unit. Coordinates are PDF points with the origin
// at the top-left corner of the page, whatever the token's source.
type Token struct {
	Text   string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (t Token) CenterX() float64 { return t.X + t.Width/2 }
func (t Token) CenterY() float64 { return t.Y + t.Height/2 }
func (t Token) Right() float64   { return t.X + t.Width }

// Line is a row of tokens ordered left to right.
type Line struct {
	Y      float64 // representative center Y, taken from the first member
	Tokens []Token
}

// Text joins the line's tokens with single spaces.
func (l Line) Text() string {
	parts := make([]string, 0, len(l.Tokens))
	for _, t := range l.Tokens {
		if s := strings.TrimSpace(t.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Height is the tallest glyph box on the line.
func (l Line) Height() float64 {
	var h float64
	for _, t := range l.Tokens {
		h = math.Max(h, t.Height)
	}
	return h
}

// GroupRows clusters tokens into lines. A token joins the first line whose
// representative Y lies within tolerance of the token's vertical center,
// otherwise it opens a new line. Lines come back top to bottom and tokens
// left to right; ties keep insertion order.
func GroupRows(tokens []Token, tolerance float64) []Line {
	if len(tokens) == 0 {
		return nil
	}
	if tolerance < 0 {
		tolerance = 0
	}

	var lines []Line
	for _, t := range tokens {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		cy := t.CenterY()
		placed := false
		for i := range lines {
			if math.Abs(lines[i].Y-cy) <= tolerance {
				lines[i].Tokens = append(lines[i].Tokens, t)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, Line{Y: cy, Tokens: []Token{t}})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Y < lines[j].Y })
	for i := range lines {
		toks := lines[i].Tokens
		sort.SliceStable(toks, func(a, b int) bool { return toks[a].X < toks[b].X })
	}
	return lines
}

// Flatten returns every token of lines in reading order.
func Flatten(lines []Line) []Token {
	var n int
	for _, l := range lines {
		n += len(l.Tokens)
	}
	out := make([]Token, 0, n)
	for _, l := range lines {
		out = append(out, l.Tokens...)
	}
	return out
}

// Texts returns the text of every line.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text()
	}
	return out
}

// Join concatenates tokens, gluing neighbours whose horizontal gap is at most
// glue and separating the others with one space.
func Join(tokens []Token, glue float64) string {
	var b strings.Builder
	for i, t := range tokens {
		s := strings.TrimSpace(t.Text)
		if s == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			if t.X-tokens[i-1].Right() > glue {
				b.WriteByte(' ')
			}
		}
		b.WriteString(s)
	}
	return b.String()
}
