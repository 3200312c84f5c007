package layout

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// maxWindow bounds how many adjacent tokens may form one date or amount.
const maxWindow = 6

var reSeqToken = regexp.MustCompile(`^(?i:n\.?|nr\.?|rata)?\s*(\d{1,4})[.)°]?$`)

// Match is one date anchor with the amount stitched to its right.
type Match struct {
	Seq     int // 0 when the line has no leading sequence number
	DueDate string
	Amount  decimal.Decimal
	Line    Line
}

// Locator finds date anchors in lines and stitches the nearest amount to each.
type Locator struct {
	tol Tolerances
}

func NewLocator(tol Tolerances) *Locator {
	return &Locator{tol: tol}
}

// Locate scans every line of one page. Amount candidates are drawn from all
// page tokens, not only the anchor's line, so a figure that jittered into a
// neighbouring row is still found.
func (l *Locator) Locate(lines []Line) []Match {
	page := Flatten(lines)
	var out []Match
	for _, line := range lines {
		if IsGrandTotal(line.Text()) {
			continue
		}
		out = append(out, l.locateLine(line, page)...)
	}
	return out
}

func (l *Locator) locateLine(line Line, page []Token) []Match {
	toks := line.Tokens
	var out []Match
	for i := 0; i < len(toks); {
		iso, w, ok := l.dateAt(toks, i)
		if !ok {
			i++
			continue
		}
		anchor := toks[i : i+w]
		if amt, ok := l.stitchAmount(anchor, page); ok {
			out = append(out, Match{
				Seq:     leadingSeq(toks[:i]),
				DueDate: iso,
				Amount:  amt,
				Line:    line,
			})
		}
		i += w
	}
	return out
}

// dateAt tries windows of increasing width starting at toks[i].
func (l *Locator) dateAt(toks []Token, i int) (string, int, bool) {
	for w := 1; w <= maxWindow && i+w <= len(toks); w++ {
		win := toks[i : i+w]
		if iso, ok := matchDateWindow(Join(win, l.tol.Glue(maxHeight(win)))); ok {
			return iso, w, true
		}
	}
	return "", 0, false
}

// stitchAmount looks strictly right of the anchor inside the Y-band and
// returns the first window, widest first, that reads as one amount.
func (l *Locator) stitchAmount(anchor []Token, page []Token) (decimal.Decimal, bool) {
	last := anchor[len(anchor)-1]
	h := maxHeight(anchor)
	cy := anchor[0].CenterY()
	band := l.tol.AmountBand(h)

	var cands []Token
	for _, t := range page {
		if t.CenterX() <= last.Right() || t.X < last.X {
			continue
		}
		if math.Abs(t.CenterY()-cy) > band {
			continue
		}
		cands = append(cands, t)
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].X < cands[b].X })

	for s := 0; s < len(cands); s++ {
		for w := min(maxWindow, len(cands)-s); w >= 1; w-- {
			win := cands[s : s+w]
			if amt, ok := matchAmountWindow(Join(win, l.tol.Glue(maxHeight(win)))); ok && amt.IsPositive() {
				return amt, true
			}
		}
	}
	return decimal.Zero, false
}

// leadingSeq reads a sequence number from the first token before the anchor.
func leadingSeq(before []Token) int {
	if len(before) == 0 {
		return 0
	}
	m := reSeqToken.FindStringSubmatch(before[0].Text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func maxHeight(toks []Token) float64 {
	var h float64
	for _, t := range toks {
		h = math.Max(h, t.Height)
	}
	return h
}
