package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/installments-tracker/constants"
	"github.com/joseph-ayodele/installments-tracker/internal/layout"
	"github.com/joseph-ayodele/installments-tracker/internal/pdfdoc"
	"github.com/joseph-ayodele/installments-tracker/internal/profile"
)

// TextLayerExtractor parses the embedded text layer of every page.
type TextLayerExtractor struct {
	asm    assembler
	logger *slog.Logger
}

func NewTextLayerExtractor(registry *profile.Registry, tol layout.Tolerances, logger *slog.Logger) *TextLayerExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = profile.NewRegistry()
	}
	return &TextLayerExtractor{
		asm:    assembler{tol: tol, source: constants.SourceText, registry: registry, logger: logger},
		logger: logger,
	}
}

// Extract reads page tokens one page at a time. A page whose content cannot
// be read is recorded as a warning and contributes nothing.
func (e *TextLayerExtractor) Extract(ctx context.Context, doc pdfdoc.Document, opts PassOptions) (PassResult, error) {
	n := doc.PageCount()
	res := PassResult{Pages: n}
	pages := make([][]layout.Line, 0, n)

	for p := 1; p <= n; p++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		toks, err := doc.PageTokens(ctx, p)
		if err != nil {
			e.logger.Warn("extract.text.page_failed", "path", doc.Path(), "page", p, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: text layer unreadable: %v", p, err))
			res.FailedPages++
			continue
		}
		pages = append(pages, layout.GroupRows(toks, e.asm.tol.RowTolerance))
		opts.progress(p * 100 / n)
	}

	res.Installments, res.Profile = e.asm.assemble(pages, opts.Profile)
	e.logger.Info("extract.text.ok",
		"path", doc.Path(),
		"pages", n,
		"failed_pages", res.FailedPages,
		"rows", len(res.Installments),
		"profile", res.Profile,
	)
	return res, nil
}
