package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/installments-tracker/constants"
	"github.com/joseph-ayodele/installments-tracker/internal/layout"
	"github.com/joseph-ayodele/installments-tracker/internal/ocr"
	"github.com/joseph-ayodele/installments-tracker/internal/pdfdoc"
	"github.com/joseph-ayodele/installments-tracker/internal/profile"
)

// MinWordConfidence drops OCR words the engine itself doubts. Words with no
// reported confidence (0) are kept.
const MinWordConfidence = 0.3

type OCRConfig struct {
	DPI        int // render resolution, default 300
	Attempts   []ocr.EngineConfig
	Preprocess bool
}

// OCRExtractor renders each page, recognises words and runs the same
// geometric parsing as the text-layer pass on the word boxes.
type OCRExtractor struct {
	factory ocr.Factory
	cfg     OCRConfig
	asm     assembler
	logger  *slog.Logger
}

func NewOCRExtractor(factory ocr.Factory, cfg OCRConfig, registry *profile.Registry, tol layout.Tolerances, logger *slog.Logger) *OCRExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = profile.NewRegistry()
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if len(cfg.Attempts) == 0 {
		cfg.Attempts = ocr.DefaultAttempts()
	}
	return &OCRExtractor{
		factory: factory,
		cfg:     cfg,
		asm:     assembler{tol: tol, source: constants.SourceOCR, registry: registry, logger: logger},
		logger:  logger,
	}
}

// Extract acquires one engine for the whole document and releases it on
// every return path. Cancellation is honoured between pages; a page whose
// recognition already started finishes first.
func (e *OCRExtractor) Extract(ctx context.Context, doc pdfdoc.Document, opts PassOptions) (PassResult, error) {
	eng, err := ocr.Acquire(ctx, e.factory, e.cfg.Attempts, e.logger)
	if err != nil {
		return PassResult{}, err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			e.logger.Warn("extract.ocr.engine_close_failed", "engine", eng.Name(), "error", err)
		}
	}()
	if e.cfg.Preprocess {
		eng = ocr.WithPreprocessing(eng)
	}

	n := doc.PageCount()
	res := PassResult{Pages: n}
	scale := float64(e.cfg.DPI) / 72.0
	pages := make([][]layout.Line, 0, n)

	for p := 1; p <= n; p++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		lines, err := e.page(ctx, eng, doc, p, scale)
		if err != nil {
			e.logger.Warn("extract.ocr.page_failed", "path", doc.Path(), "page", p, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: ocr failed: %v", p, err))
			res.FailedPages++
		} else {
			pages = append(pages, lines)
		}
		opts.progress(p * 100 / n)
	}

	res.Installments, res.Profile = e.asm.assemble(pages, opts.Profile)
	e.logger.Info("extract.ocr.ok",
		"path", doc.Path(),
		"engine", eng.Name(),
		"pages", n,
		"failed_pages", res.FailedPages,
		"rows", len(res.Installments),
		"profile", res.Profile,
	)
	return res, nil
}

func (e *OCRExtractor) page(ctx context.Context, eng ocr.Engine, doc pdfdoc.Document, p int, scale float64) ([]layout.Line, error) {
	img, err := doc.RenderPage(ctx, p, scale)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	// no ctx here: an in-flight recognition is allowed to complete
	rec, err := eng.Recognize(context.WithoutCancel(ctx), img)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	toks := layout.RepairTokens(WordsToTokens(rec.Words, scale))
	e.logger.Debug("extract.ocr.page", "page", p, "words", len(rec.Words), "tokens", len(toks), "confidence", rec.Confidence)
	return layout.GroupRows(toks, e.asm.tol.RowTolerance), nil
}

// WordsToTokens converts pixel word boxes into PDF-point tokens.
func WordsToTokens(words []ocr.Word, scale float64) []layout.Token {
	if scale <= 0 {
		scale = 1
	}
	out := make([]layout.Token, 0, len(words))
	for _, w := range words {
		if w.Confidence > 0 && w.Confidence < MinWordConfidence {
			continue
		}
		out = append(out, layout.Token{
			Text:   w.Text,
			X:      w.X / scale,
			Y:      w.Y / scale,
			Width:  w.W / scale,
			Height: w.H / scale,
		})
	}
	return out
}
