package azure

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/installments-tracker/internal/ocr"
)

type fakeClient struct {
	lang   computervision.OcrLanguages
	result computervision.OcrResult
	err    error
}

func (f *fakeClient) RecognizePrintedTextInStream(_ context.Context, _ bool, r io.ReadCloser, lang computervision.OcrLanguages) (computervision.OcrResult, error) {
	f.lang = lang
	_, _ = io.ReadAll(r)
	return f.result, f.err
}

func word(text, box string) computervision.OcrWord {
	return computervision.OcrWord{Text: &text, BoundingBox: &box}
}

func TestEngine_Recognize(t *testing.T) {
	words := []computervision.OcrWord{
		word("03", "100,200,50,40"),
		word("15/06/2024", "300,200,250,40"),
		word("1.200,00", "800,202,200,40"),
		word("bad", "1,2,3"),
	}
	lines := []computervision.OcrLine{{Words: &words}}
	regions := []computervision.OcrRegion{{Lines: &lines}}
	client := &fakeClient{result: computervision.OcrResult{Regions: &regions}}

	eng, err := NewEngine(client, ocr.EngineConfig{Languages: []string{"ita", "eng"}}, nil)
	require.NoError(t, err)

	rec, err := eng.Recognize(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, computervision.OcrLanguages("it"), client.lang)
	require.Len(t, rec.Words, 3)
	assert.Equal(t, ocr.Word{Text: "1.200,00", X: 800, Y: 202, W: 200, H: 40}, rec.Words[2])
	assert.Equal(t, "03 15/06/2024 1.200,00", rec.Text)
	assert.Greater(t, rec.Confidence, 0.0)
}

func TestEngine_Errors(t *testing.T) {
	_, err := NewEngine(&fakeClient{}, ocr.EngineConfig{Languages: []string{"xxx"}}, nil)
	assert.Error(t, err)

	eng, err := NewEngine(&fakeClient{err: errors.New("quota")}, ocr.EngineConfig{Languages: []string{"eng"}}, nil)
	require.NoError(t, err)
	_, err = eng.Recognize(context.Background(), nil)
	assert.ErrorContains(t, err, "quota")

	_, err = NewFactory(Config{}, nil)(context.Background(), ocr.EngineConfig{Languages: []string{"ita"}})
	assert.Error(t, err)
}

func TestNewEngine_Language(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
		want      computervision.OcrLanguages
	}{
		{"first attempt language", []string{"eng", "ita"}, computervision.OcrLanguages("en")},
		{"german", []string{"deu"}, computervision.OcrLanguages("de")},
		{"none detects", nil, computervision.OcrLanguages("unk")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			eng, err := NewEngine(client, ocr.EngineConfig{Languages: tt.languages}, nil)
			require.NoError(t, err)
			_, err = eng.Recognize(context.Background(), []byte("png"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.lang)
		})
	}
}
