// Package lineparse is the last-resort, line-oriented installment parser
// driven by a parsing profile.
package lineparse

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/installments-tracker/constants"
	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	"github.com/joseph-ayodele/installments-tracker/internal/layout"
	"github.com/joseph-ayodele/installments-tracker/internal/profile"
)

var (
	reGenericSeq = regexp.MustCompile(`^\s*(\d{1,3})[\s.)]`)
	reNumbers    = regexp.MustCompile(`[\d.,/-]*\d[\d.,/-]*`)
)

type Parser struct {
	profile profile.Profile
	logger  *slog.Logger
}

func NewParser(p profile.Profile, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{profile: p, logger: logger}
}

// Parse reads one installment per usable line. Lines without a date or an
// amount are skipped; the sequence number falls back to a running counter.
func (p *Parser) Parse(lines []string) []entity.Installment {
	var out []entity.Installment
	next := 1
	for _, line := range lines {
		if IsNoise(line) {
			continue
		}
		inst, ok := p.parseLine(line, next)
		if !ok {
			continue
		}
		next = inst.Seq + 1
		out = append(out, inst)
	}
	p.logger.Debug("lineparse.done", "profile", p.profile.ID, "lines", len(lines), "rows", len(out))
	return out
}

func (p *Parser) parseLine(line string, counter int) (entity.Installment, bool) {
	iso, span, ok := p.findDate(line)
	if !ok {
		return entity.Installment{}, false
	}
	// amounts and auxiliary fields are read with the date cut out so a
	// dotted date never reads as an English decimal
	rest := strings.TrimSpace(line[:span[0]] + " " + line[span[1]:])

	amount, ok := p.lastAmount(rest)
	if !ok || !amount.IsPositive() {
		return entity.Installment{}, false
	}

	inst := entity.Installment{
		Seq:     counter,
		DueDate: iso,
		Amount:  amount,
		Source:  constants.SourceLine,
	}
	if n, ok := p.seq(line[:span[0]]); ok {
		inst.Seq = n
	}
	inst.Tributo = capture(p.profile.Tributo, rest)
	inst.Anno = capture(p.profile.Anno, rest)
	if v, ok := layout.ParseAmount(capture(p.profile.Debito, rest)); ok {
		inst.Debito = &v
	}
	if v, ok := layout.ParseAmount(capture(p.profile.Interessi, rest)); ok {
		inst.Interessi = &v
	}
	inst.Description = describe(line)
	return inst, true
}

func (p *Parser) findDate(line string) (string, []int, bool) {
	if re := p.profile.Date; re != nil {
		if m := re.FindStringSubmatchIndex(line); m != nil {
			start, end := m[0], m[1]
			if len(m) >= 4 && m[2] >= 0 {
				start, end = m[2], m[3]
			}
			if iso := layout.ToISO(line[start:end]); iso != "" {
				return iso, []int{start, end}, true
			}
		}
	}
	return layout.FindDate(line)
}

// lastAmount takes the right-most monetary figure: on installment rows the
// amount due comes after the principal and interest breakdown.
func (p *Parser) lastAmount(s string) (decimal.Decimal, bool) {
	if re := p.profile.Amount; re != nil {
		if all := re.FindAllStringSubmatch(s, -1); len(all) > 0 {
			m := all[len(all)-1]
			v := m[0]
			if len(m) > 1 && m[1] != "" {
				v = m[1]
			}
			if d, ok := layout.ParseAmount(v); ok {
				return d, true
			}
		}
	}
	return layout.LastAmount(s)
}

// seq reads the leading sequence number from the text before the date.
func (p *Parser) seq(prefix string) (int, bool) {
	re := p.profile.Seq
	if re == nil {
		re = reGenericSeq
	}
	m := re.FindStringSubmatch(prefix + " ")
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func capture(re *regexp.Regexp, s string) string {
	if re == nil {
		return ""
	}
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// describe keeps the words of a line once every figure is removed.
func describe(line string) string {
	return strings.Join(strings.Fields(reNumbers.ReplaceAllString(line, " ")), " ")
}
