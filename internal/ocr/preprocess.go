package ocr

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
)

// Preprocess converts a page raster to grayscale, raises contrast and
// sharpens it, returning PNG bytes.
func Preprocess(img []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	out := imaging.Grayscale(src)
	out = imaging.AdjustContrast(out, 30)
	out = imaging.Sharpen(out, 1.5)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

type preprocessing struct {
	Engine
}

// WithPreprocessing wraps an engine so every raster goes through Preprocess
// first. A raster that cannot be decoded is passed through unchanged.
func WithPreprocessing(e Engine) Engine {
	return preprocessing{Engine: e}
}

func (p preprocessing) Recognize(ctx context.Context, img []byte) (Recognition, error) {
	if processed, err := Preprocess(img); err == nil {
		img = processed
	}
	return p.Engine.Recognize(ctx, img)
}
