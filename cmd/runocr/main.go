package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/installments-tracker/internal/common"
	"github.com/joseph-ayodele/installments-tracker/internal/core/runner"
	"github.com/joseph-ayodele/installments-tracker/internal/ocr"
	"github.com/joseph-ayodele/installments-tracker/internal/pdfdoc"
)

// runocr recognises a single page with the configured tesseract setup and
// prints the text. It is a quick check that pdftoppm, tesseract and the
// language data are installed.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 || len(os.Args) > 3 {
		logger.Error("usage", "cmd", "runocr <file.pdf> [page]")
		os.Exit(2)
	}
	page := 0
	if len(os.Args) == 3 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < 1 {
			logger.Error("invalid page number (must be >= 1)", "arg", os.Args[2])
			os.Exit(2)
		}
		page = n - 1
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	r := runner.NewExec(logger)
	doc, err := pdfdoc.NewLoader(pdfdoc.Config{Pdftoppm: cfg.OCR.PdftoppmBin}, r, logger).Open(ctx, os.Args[1])
	if err != nil {
		logger.Error("open document", "path", os.Args[1], "code", common.CodeOf(err), "error", err)
		os.Exit(1)
	}
	defer doc.Close()
	if page >= doc.PageCount() {
		logger.Error("page out of range", "page", page+1, "pages", doc.PageCount())
		os.Exit(2)
	}

	factory := ocr.NewTesseractFactory(ocr.Config{
		Tesseract:   cfg.OCR.TesseractBin,
		TessdataDir: cfg.OCR.TessdataDir,
		DPI:         cfg.OCR.DPI,
	}, r, logger)
	engine, err := ocr.Acquire(ctx, factory, ocr.AttemptsFor(cfg.OCR.Languages, cfg.OCR.PSM), logger)
	if err != nil {
		logger.Error("no OCR engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()
	if cfg.OCR.Preprocess {
		engine = ocr.WithPreprocessing(engine)
	}

	start := time.Now()
	img, err := doc.RenderPage(ctx, page, float64(cfg.OCR.DPI)/72)
	if err != nil {
		logger.Error("render page", "page", page+1, "error", err)
		os.Exit(1)
	}
	rec, err := engine.Recognize(ctx, img)
	dur := time.Since(start)
	if err != nil {
		logger.Error("ocr failed", "page", page+1, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("ocr OK",
		"engine", engine.Name(),
		"page", page+1,
		"words", len(rec.Words),
		"confidence", rec.Confidence,
		"mean_word_confidence", ocr.MeanConfidence(rec.Words),
		"duration_ms", dur.Milliseconds(),
	)
	fmt.Println(rec.Text)
}
