// Package ocr defines the recognition contract used by the OCR extraction
// phase and the default Tesseract CLI engine.
package ocr

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrEngineUnavailable is returned when no engine configuration could be acquired.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Word is one recognised word with its box in image pixels.
type Word struct {
	Text       string
	X, Y       float64
	W, H       float64
	Confidence float64 // 0..1
}

// Recognition is the output of one Recognize call.
type Recognition struct {
	Text       string
	Words      []Word
	Confidence float64 // mean word confidence, 0..1
}

// Engine turns a page raster into words with positions.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img []byte) (Recognition, error)
	Close() error
}

// EngineConfig is one acquisition attempt.
type EngineConfig struct {
	Languages      []string
	PSM            int
	PreserveSpaces bool
}

func (c EngineConfig) Lang() string { return strings.Join(c.Languages, "+") }

func (c EngineConfig) String() string {
	return c.Lang() + "/psm" + strconv.Itoa(c.PSM)
}

// Factory creates an engine for one configuration, probing that the
// configuration is usable (binary present, language data installed).
type Factory func(ctx context.Context, cfg EngineConfig) (Engine, error)

// Config holds settings shared by the engine implementations.
type Config struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string
	OEM         int // 1 = LSTM; leave 0 to use default
	DPI         int // raster DPI hint, default 300
}

func (c Config) withDefaults() Config {
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	return c
}

// MeanConfidence averages word confidences, ignoring words without one.
func MeanConfidence(words []Word) float64 {
	var sum float64
	var n int
	for _, w := range words {
		if w.Confidence <= 0 {
			continue
		}
		sum += w.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
