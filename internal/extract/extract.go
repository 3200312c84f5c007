// Package extract turns an opened PDF into an installment schedule. A
// text-layer pass runs first; when it yields too few rows an OCR pass
// renders every page, and the two results are merged by due date.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/joseph-ayodele/installments-tracker/constants"
	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	"github.com/joseph-ayodele/installments-tracker/internal/layout"
	"github.com/joseph-ayodele/installments-tracker/internal/lineparse"
	"github.com/joseph-ayodele/installments-tracker/internal/pdfdoc"
	"github.com/joseph-ayodele/installments-tracker/internal/profile"
	"github.com/joseph-ayodele/installments-tracker/internal/table"
)

// PassOptions configures one extraction pass.
type PassOptions struct {
	Profile    profile.ID // empty = detect from the pass's own text
	OnProgress func(percent int)
}

func (o PassOptions) progress(p int) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}

// PassResult is what one pass recovered from a document.
type PassResult struct {
	Installments []entity.Installment
	Warnings     []string
	Profile      profile.ID
	Pages        int
	FailedPages  int
}

// Pass is one extraction strategy over a whole document.
type Pass interface {
	Extract(ctx context.Context, doc pdfdoc.Document, opts PassOptions) (PassResult, error)
}

// assembler turns grouped page lines into installments. The locator,
// the column-band table parser and the profile line parser all see the same
// lines; their rows are reconciled by due date.
type assembler struct {
	tol      layout.Tolerances
	source   constants.Source
	registry *profile.Registry
	logger   *slog.Logger
}

func (a *assembler) assemble(pages [][]layout.Line, override profile.ID) ([]entity.Installment, profile.ID) {
	locator := layout.NewLocator(a.tol)
	var located []entity.Installment
	var texts []string
	for _, lines := range pages {
		for _, m := range locator.Locate(lines) {
			located = append(located, entity.Installment{
				Seq:     m.Seq,
				DueDate: m.DueDate,
				Amount:  m.Amount,
				Source:  a.source,
			})
		}
		texts = append(texts, layout.Texts(lines)...)
	}

	id := override
	if id == "" {
		id, _ = a.registry.Detect(strings.Join(texts, "\n"))
	}
	prof := a.registry.Resolve(id)

	rows, err := table.NewParser(a.tol, a.logger).Parse(pages)
	if err == nil {
		a.logger.Debug("extract.table.rows", "source", a.source, "table", len(rows), "located", len(located))
		return reconcile(rows, located), prof.ID
	}
	if !errors.Is(err, table.ErrNoHeader) && !errors.Is(err, table.ErrMissingColumns) {
		a.logger.Warn("extract.table.failed", "source", a.source, "error", err)
	}

	lineRows := lineparse.NewParser(prof, a.logger).Parse(texts)
	a.logger.Debug("extract.line.rows", "source", a.source, "profile", prof.ID, "line", len(lineRows), "located", len(located))
	return reconcile(located, lineRows), prof.ID
}

// reconcile keeps one row per due date. primary rows win; secondary rows
// only fill dates primary lacks and enrich optional fields. Undated rows
// are kept from primary only.
func reconcile(primary, secondary []entity.Installment) []entity.Installment {
	out := make([]entity.Installment, 0, len(primary)+len(secondary))
	index := make(map[string]int, len(primary)+len(secondary))
	add := func(r entity.Installment, undated bool) {
		if r.DueDate == "" {
			if undated {
				out = append(out, r)
			}
			return
		}
		if i, ok := index[r.DueDate]; ok {
			out[i].Enrich(r)
			return
		}
		index[r.DueDate] = len(out)
		out = append(out, r)
	}
	for _, r := range primary {
		add(r, true)
	}
	for _, r := range secondary {
		add(r, false)
	}
	sortChronological(out)
	return out
}

// sortChronological orders dated rows by due date and moves undated rows
// to the end, keeping their relative order.
func sortChronological(rows []entity.Installment) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].DueDate, rows[j].DueDate
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})
}
