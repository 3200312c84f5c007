// Package pdfdoc opens PDF files and exposes per-page word tokens from the
// text layer and page rasters for OCR.
package pdfdoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/installments-tracker/internal/common"
	"github.com/joseph-ayodele/installments-tracker/internal/core/runner"
	"github.com/joseph-ayodele/installments-tracker/internal/layout"
)

// Document is an opened PDF. Pages are 1-based.
type Document interface {
	Path() string
	PageCount() int
	// PageTokens returns the page's text-layer words in top-left origin points.
	PageTokens(ctx context.Context, page int) ([]layout.Token, error)
	// RenderPage rasterises a page to PNG at scale pixels per point.
	RenderPage(ctx context.Context, page int, scale float64) ([]byte, error)
	Close() error
}

// Opener opens documents; the orchestrator depends on this, not on Loader.
type Opener interface {
	Open(ctx context.Context, path string) (Document, error)
}

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
}

// Loader opens documents from disk.
type Loader struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

func NewLoader(cfg Config, r runner.Runner, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = runner.NewExec(logger)
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	return &Loader{cfg: cfg, runner: r, logger: logger}
}

// Open loads and classifies the document. Failures are input errors:
// common.ErrDocumentLoad, common.ErrEncryptedDocument or common.ErrCorruptDocument.
func (l *Loader) Open(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, common.InputError(common.ErrDocumentLoad, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, common.InputError(common.ErrDocumentLoad, path, err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, common.InputError(common.ErrCorruptDocument, path, errors.New("empty file"))
	}

	pages, err := l.inspect(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, common.InputError(common.ErrDocumentLoad, path, err)
	}

	r, err := newReader(f, info.Size())
	if err != nil {
		f.Close()
		if isPasswordErr(err) {
			return nil, common.InputError(common.ErrEncryptedDocument, path, err)
		}
		return nil, common.InputError(common.ErrCorruptDocument, path, err)
	}
	if n := r.NumPage(); n != pages {
		l.logger.Debug("pdfdoc.page_count_mismatch", "path", path, "pdfcpu", pages, "reader", n)
		pages = n
	}
	if pages == 0 {
		f.Close()
		return nil, common.InputError(common.ErrCorruptDocument, path, errors.New("no pages"))
	}

	l.logger.Info("pdfdoc.opened", "path", path, "pages", pages, "bytes", info.Size())
	return &document{
		path:   path,
		file:   f,
		reader: r,
		pages:  pages,
		cfg:    l.cfg,
		runner: l.runner,
		logger: l.logger,
	}, nil
}

// inspect parses the cross-reference structure with pdfcpu so broken and
// password-protected files are classified before text extraction.
func (l *Loader) inspect(rs io.ReadSeeker, path string) (int, error) {
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadContext(rs, conf)
	if err != nil {
		if isPasswordErr(err) {
			return 0, common.InputError(common.ErrEncryptedDocument, path, err)
		}
		return 0, common.InputError(common.ErrCorruptDocument, path, err)
	}
	if err := api.ValidateContext(pctx); err != nil {
		// relaxed validation still trips on files the text reader handles
		l.logger.Warn("pdfdoc.validation_warning", "path", path, "error", err)
	}
	return pctx.PageCount, nil
}

// newReader guards against panics in the reader on malformed xref data.
func newReader(f *os.File, size int64) (r *lpdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf reader: %v", rec)
		}
	}()
	return lpdf.NewReader(f, size)
}

func isPasswordErr(err error) bool {
	if errors.Is(err, pdfcpu.ErrWrongPassword) || errors.Is(err, lpdf.ErrInvalidPassword) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "password")
}

type document struct {
	path   string
	file   *os.File
	reader *lpdf.Reader
	pages  int
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

func (d *document) Path() string   { return d.path }
func (d *document) PageCount() int { return d.pages }

func (d *document) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *document) PageTokens(ctx context.Context, page int) (toks []layout.Token, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("page %d out of range [1, %d]", page, d.pages)
	}
	defer func() {
		if rec := recover(); rec != nil {
			toks, err = nil, fmt.Errorf("page %d content: %v", page, rec)
		}
	}()

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d: missing page object", page)
	}
	height := pageHeight(p.V)
	return MergeGlyphs(p.Content().Text, height), nil
}
