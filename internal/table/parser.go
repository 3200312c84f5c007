package table

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/installments-tracker/constants"
	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	"github.com/joseph-ayodele/installments-tracker/internal/layout"
)

var (
	ErrNoHeader       = errors.New("table: no header line")
	ErrMissingColumns = errors.New("table: header lacks a date or amount column")
)

// minHeaderScore is the number of distinct column kinds a header must name.
const minHeaderScore = 2

var (
	reDigits = regexp.MustCompile(`\d+`)
	reYear   = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// Parser recovers header-aligned tables by column banding.
type Parser struct {
	tol    layout.Tolerances
	hints  *hintIndex
	logger *slog.Logger
}

func NewParser(tol layout.Tolerances, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if tol.HeaderScanLines <= 0 {
		tol.HeaderScanLines = layout.TextLayerTolerances().HeaderScanLines
	}
	return &Parser{tol: tol, hints: newHintIndex(), logger: logger}
}

// DetectHeader scores the leading lines and returns the index of the best
// header candidate. Lines carrying a date are data rows and never headers.
func (p *Parser) DetectHeader(lines []layout.Line) (int, error) {
	best, bestScore := -1, 0
	for i, line := range lines {
		if i >= p.tol.HeaderScanLines {
			break
		}
		text := line.Text()
		if _, _, ok := layout.FindDate(text); ok {
			continue
		}
		if s := p.hints.score(text); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore < minHeaderScore {
		return -1, ErrNoHeader
	}
	return best, nil
}

// BuildBands splits the header into label groups at wide gaps and maps each
// group to a column. The result always holds a date band and an amount band.
func (p *Parser) BuildBands(header layout.Line) ([]ColumnBand, error) {
	var groups [][]layout.Token
	for i, t := range header.Tokens {
		if i == 0 || t.X-header.Tokens[i-1].Right() > p.tol.HeaderGap {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], t)
	}

	var bands []ColumnBand
	seen := make(map[ColumnKey]bool)
	for _, g := range groups {
		label := layout.Join(g, 0)
		key, ok := classify(label)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		bands = append(bands, ColumnBand{
			Key:   key,
			X0:    g[0].X - p.tol.BandMargin,
			X1:    g[len(g)-1].Right() + p.tol.BandMargin,
			Label: label,
		})
	}

	if !seen[ColDate] || !(seen[ColDaVersare] || seen[ColDebito]) {
		return bands, fmt.Errorf("%w: found %s", ErrMissingColumns, bandKeys(bands))
	}
	return bands, nil
}

// Parse reads a whole document given as lines per page. The header is looked
// for page by page; its bands then apply to every later line, and repeated
// headers on following pages are skipped.
func (p *Parser) Parse(pages [][]layout.Line) ([]entity.Installment, error) {
	headerPage, headerIdx := -1, -1
	for pi, lines := range pages {
		if idx, err := p.DetectHeader(lines); err == nil {
			headerPage, headerIdx = pi, idx
			break
		}
	}
	if headerPage < 0 {
		return nil, ErrNoHeader
	}

	bands, err := p.BuildBands(pages[headerPage][headerIdx])
	if err != nil {
		return nil, err
	}
	p.logger.Debug("table.header.found",
		"page", headerPage+1,
		"line", headerIdx,
		"columns", bandKeys(bands),
	)

	var out []entity.Installment
	for pi := headerPage; pi < len(pages); pi++ {
		for li, line := range pages[pi] {
			if pi == headerPage && li <= headerIdx {
				continue
			}
			text := line.Text()
			if layout.IsGrandTotal(text) {
				continue
			}
			if _, _, ok := layout.FindDate(text); !ok && p.hints.score(text) >= minHeaderScore {
				continue
			}
			if inst, ok := p.parseRow(line, bands); ok {
				out = append(out, inst)
			}
		}
	}
	return out, nil
}

func (p *Parser) parseRow(line layout.Line, bands []ColumnBand) (entity.Installment, bool) {
	cells := make(map[ColumnKey][]layout.Token, len(bands))
	for _, t := range line.Tokens {
		if b, ok := assign(t.CenterX(), bands); ok {
			cells[b.Key] = append(cells[b.Key], t)
		}
	}
	text := func(k ColumnKey) string {
		toks := cells[k]
		return strings.TrimSpace(layout.Join(toks, p.tol.Glue(line.Height())))
	}

	inst := entity.Installment{
		DueDate:     layout.ToISO(text(ColDate)),
		Description: text(ColDescrizione),
		Tributo:     text(ColTributo),
		Source:      constants.SourceTable,
	}
	if d := strings.Join(reDigits.FindAllString(text(ColSeq), -1), ""); d != "" {
		inst.Seq, _ = strconv.Atoi(d)
	}
	if y := reYear.FindString(text(ColAnno)); y != "" {
		inst.Anno = y
	}
	if v, ok := layout.ParseAmount(text(ColDebito)); ok {
		inst.Debito = &v
	}
	if v, ok := layout.ParseAmount(text(ColInteressi)); ok {
		inst.Interessi = &v
	}
	if v, ok := layout.ParseAmount(text(ColDaVersare)); ok && v.IsPositive() {
		inst.Amount = v
	} else if inst.Debito != nil {
		inst.Amount = *inst.Debito
	}

	if inst.DueDate == "" && !inst.Amount.IsPositive() {
		return entity.Installment{}, false
	}
	return inst, true
}

// assign picks the band containing x; when widened bands overlap the one
// whose center is closest wins.
func assign(x float64, bands []ColumnBand) (ColumnBand, bool) {
	var best ColumnBand
	found := false
	bestDist := math.MaxFloat64
	for _, b := range bands {
		if !b.Contains(x) {
			continue
		}
		if d := math.Abs(b.Center() - x); d < bestDist {
			best, bestDist, found = b, d, true
		}
	}
	return best, found
}

func bandKeys(bands []ColumnBand) []string {
	out := make([]string, len(bands))
	for i, b := range bands {
		out[i] = string(b.Key)
	}
	return out
}
