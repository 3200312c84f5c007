// Package azure recognises page rasters with Azure Computer Vision OCR.
package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/joseph-ayodele/installments-tracker/internal/ocr"
)

// Recognizer is the subset of the computervision client the engine calls.
type Recognizer interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, imageParameter io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

type Config struct {
	Endpoint string
	Key      string
	Timeout  time.Duration // per page request; 0 = none
}

type Engine struct {
	client   Recognizer
	language computervision.OcrLanguages
	timeout  time.Duration
	logger   *slog.Logger
}

// tesseract language codes to the two-letter codes the service expects
var languageCodes = map[string]computervision.OcrLanguages{
	"ita": computervision.OcrLanguages(computervision.It),
	"eng": computervision.OcrLanguages(computervision.En),
	"deu": computervision.OcrLanguages(computervision.De),
	"fra": computervision.OcrLanguages(computervision.Fr),
	"spa": computervision.OcrLanguages(computervision.Es),
}

// autoDetect asks the service to detect the language itself.
const autoDetect = computervision.OcrLanguages("unk")

// NewFactory returns an ocr.Factory backed by the Computer Vision service.
// Only the first language of an attempt is sent.
func NewFactory(cfg Config, logger *slog.Logger) ocr.Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, ec ocr.EngineConfig) (ocr.Engine, error) {
		if cfg.Endpoint == "" || cfg.Key == "" {
			return nil, fmt.Errorf("azure endpoint and key are required")
		}
		client := computervision.New(cfg.Endpoint)
		client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.Key)
		e, err := newEngine(client, ec, logger)
		if err != nil {
			return nil, err
		}
		e.timeout = cfg.Timeout
		return e, nil
	}
}

// NewEngine builds an engine around an existing client.
func NewEngine(client Recognizer, ec ocr.EngineConfig, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return newEngine(client, ec, logger)
}

func newEngine(client Recognizer, ec ocr.EngineConfig, logger *slog.Logger) (*Engine, error) {
	lang := autoDetect
	if len(ec.Languages) > 0 {
		code, ok := languageCodes[ec.Languages[0]]
		if !ok {
			return nil, fmt.Errorf("language %q not supported", ec.Languages[0])
		}
		lang = code
	}
	return &Engine{client: client, language: lang, logger: logger}, nil
}

func (e *Engine) Name() string { return "azure" }

func (e *Engine) Close() error { return nil }

func (e *Engine) Recognize(ctx context.Context, img []byte) (ocr.Recognition, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	result, err := e.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(img)), e.language)
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("azure ocr: %w", err)
	}
	return convert(result), nil
}

func convert(result computervision.OcrResult) ocr.Recognition {
	var (
		words []ocr.Word
		lines []string
	)
	if result.Regions == nil {
		return ocr.Recognition{}
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var parts []string
			for _, w := range *line.Words {
				if w.Text == nil || strings.TrimSpace(*w.Text) == "" {
					continue
				}
				x, y, wd, h, ok := parseBox(w.BoundingBox)
				if !ok {
					continue
				}
				words = append(words, ocr.Word{Text: *w.Text, X: x, Y: y, W: wd, H: h})
				parts = append(parts, *w.Text)
			}
			if len(parts) > 0 {
				lines = append(lines, strings.Join(parts, " "))
			}
		}
	}
	text := strings.Join(lines, "\n")
	return ocr.Recognition{Text: text, Words: words, Confidence: ocr.TextConfidence(text)}
}

// parseBox reads the service's "x,y,width,height" box string.
func parseBox(box *string) (x, y, w, h float64, ok bool) {
	if box == nil {
		return 0, 0, 0, 0, false
	}
	parts := strings.Split(*box, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, false
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], vals[3], true
}
