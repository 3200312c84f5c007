package extract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/joseph-ayodele/installments-tracker/internal/layout"
	"github.com/joseph-ayodele/installments-tracker/internal/ocr"
	"github.com/joseph-ayodele/installments-tracker/internal/pdfdoc"
)

// cell is a token at x points with an explicit width on a row at y.
type cell struct {
	text string
	x, w float64
}

func row(y float64, cells ...cell) []layout.Token {
	out := make([]layout.Token, len(cells))
	for i, c := range cells {
		out[i] = layout.Token{Text: c.text, X: c.x, Y: y, Width: c.w, Height: 10}
	}
	return out
}

// installmentRow lays out "NN  dd/mm/yyyy  amount" the way schedules print it.
func installmentRow(y float64, seq, date, amount string) []layout.Token {
	return row(y, cell{seq, 72, 10}, cell{date, 150, 50}, cell{amount, 300, 40})
}

func page(rows ...[]layout.Token) []layout.Token {
	var out []layout.Token
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

// toWords scales point tokens into pixel word boxes at dpi.
func toWords(toks []layout.Token, dpi int, conf float64) []ocr.Word {
	s := float64(dpi) / 72.0
	out := make([]ocr.Word, len(toks))
	for i, t := range toks {
		out[i] = ocr.Word{Text: t.Text, X: t.X * s, Y: t.Y * s, W: t.Width * s, H: t.Height * s, Confidence: conf}
	}
	return out
}

type fakeDoc struct {
	text     [][]layout.Token
	words    [][]ocr.Word
	badText  map[int]bool
	badImage map[int]bool

	mu      sync.Mutex
	renders []int
	closed  bool
}

var _ pdfdoc.Document = (*fakeDoc)(nil)

func (d *fakeDoc) Path() string   { return "fake.pdf" }
func (d *fakeDoc) PageCount() int { return len(d.text) }

func (d *fakeDoc) PageTokens(_ context.Context, p int) ([]layout.Token, error) {
	if d.badText[p] {
		return nil, errors.New("broken content stream")
	}
	return d.text[p-1], nil
}

func (d *fakeDoc) RenderPage(_ context.Context, p int, _ float64) ([]byte, error) {
	d.mu.Lock()
	d.renders = append(d.renders, p)
	d.mu.Unlock()
	if d.badImage[p] {
		return nil, errors.New("render failed")
	}
	return []byte(strconv.Itoa(p)), nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeOpener struct {
	doc pdfdoc.Document
	err error
}

func (o fakeOpener) Open(context.Context, string) (pdfdoc.Document, error) {
	return o.doc, o.err
}

// fakeEngine returns the words of the page whose number is the image payload.
type fakeEngine struct {
	doc    *fakeDoc
	closed bool
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(_ context.Context, img []byte) (ocr.Recognition, error) {
	p, err := strconv.Atoi(string(img))
	if err != nil || p < 1 || p > len(e.doc.words) {
		return ocr.Recognition{}, fmt.Errorf("unexpected image %q", img)
	}
	return ocr.Recognition{Words: e.doc.words[p-1]}, nil
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

func engineFactory(eng *fakeEngine) ocr.Factory {
	return func(context.Context, ocr.EngineConfig) (ocr.Engine, error) { return eng, nil }
}

func failingFactory(context.Context, ocr.EngineConfig) (ocr.Engine, error) {
	return nil, errors.New("tesseract not found")
}
