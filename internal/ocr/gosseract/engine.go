// Package gosseract runs Tesseract in-process through libtesseract.
package gosseract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/installments-tracker/internal/ocr"
)

// Engine owns one gosseract client. The client is not safe for concurrent
// use, so Recognize calls are serialised.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	cfg    ocr.EngineConfig
	dpi    int
	logger *slog.Logger
}

// NewFactory returns an ocr.Factory that checks the requested languages
// against the installed traineddata before creating a client.
func NewFactory(cfg ocr.Config, logger *slog.Logger) ocr.Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, ec ocr.EngineConfig) (ocr.Engine, error) {
		if len(ec.Languages) == 0 {
			return nil, fmt.Errorf("no languages configured")
		}
		available, err := gosseract.GetAvailableLanguages()
		if err != nil {
			return nil, fmt.Errorf("list languages: %w", err)
		}
		have := make(map[string]bool, len(available))
		for _, l := range available {
			have[l] = true
		}
		for _, l := range ec.Languages {
			if !have[l] {
				return nil, fmt.Errorf("language %q not installed", l)
			}
		}

		c := gosseract.NewClient()
		if cfg.TessdataDir != "" {
			c.TessdataPrefix = cfg.TessdataDir
		}
		if err := c.SetLanguage(ec.Languages...); err != nil {
			c.Close()
			return nil, fmt.Errorf("set languages: %w", err)
		}
		if ec.PSM > 0 {
			if err := c.SetPageSegMode(gosseract.PageSegMode(ec.PSM)); err != nil {
				c.Close()
				return nil, fmt.Errorf("set psm: %w", err)
			}
		}
		if ec.PreserveSpaces {
			if err := c.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "1"); err != nil {
				c.Close()
				return nil, fmt.Errorf("set variable: %w", err)
			}
		}
		dpi := cfg.DPI
		if dpi <= 0 {
			dpi = 300
		}
		return &Engine{client: c, cfg: ec, dpi: dpi, logger: logger}, nil
	}
}

func (e *Engine) Name() string { return "gosseract" }

func (e *Engine) Recognize(ctx context.Context, img []byte) (ocr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Recognition{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(img); err != nil {
		return ocr.Recognition{}, fmt.Errorf("set image: %w", err)
	}
	if err := e.client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(e.dpi)); err != nil {
		return ocr.Recognition{}, fmt.Errorf("set dpi: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("recognize text: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("word boxes: %w", err)
	}

	words := make([]ocr.Word, 0, len(boxes))
	for _, b := range boxes {
		w := strings.TrimSpace(b.Word)
		if w == "" {
			continue
		}
		words = append(words, ocr.Word{
			Text:       w,
			X:          float64(b.Box.Min.X),
			Y:          float64(b.Box.Min.Y),
			W:          float64(b.Box.Dx()),
			H:          float64(b.Box.Dy()),
			Confidence: b.Confidence / 100.0,
		})
	}
	return ocr.Recognition{
		Text:       strings.TrimSpace(text),
		Words:      words,
		Confidence: ocr.MeanConfidence(words),
	}, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
