package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	calls [][]string
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	return s.fn(name, args)
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t2480\t3508\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t100\t200\t900\t40\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t100\t200\t50\t40\t96.5\t03\n" +
	"5\t1\t1\t1\t1\t2\t300\t200\t250\t40\t91\t15/06/2024\n" +
	"5\t1\t1\t1\t1\t3\t800\t202\t200\t40\t88\t1.200,00\n" +
	"5\t1\t1\t1\t2\t1\t100\t260\t50\t40\t90\t04\n" +
	"5\t1\t1\t1\t2\t2\t300\t260\t50\t40\t-1\t \n"

func TestParseTSV(t *testing.T) {
	rec := ParseTSV([]byte(sampleTSV))

	require.Len(t, rec.Words, 4)
	assert.Equal(t, Word{Text: "15/06/2024", X: 300, Y: 200, W: 250, H: 40, Confidence: 0.91}, rec.Words[1])
	assert.Equal(t, "03 15/06/2024 1.200,00\n04", rec.Text)
	assert.InDelta(t, (0.965+0.91+0.88+0.90)/4, rec.Confidence, 1e-9)
}

func TestTesseractFactory(t *testing.T) {
	langs := "List of available languages in \"/usr/share/tessdata/\" (3):\neng\nita\nosd\n"

	t.Run("checks installed languages", func(t *testing.T) {
		r := &stubRunner{fn: func(string, []string) ([]byte, []byte, error) { return []byte(langs), nil, nil }}
		f := NewTesseractFactory(Config{}, r, nil)

		eng, err := f(context.Background(), EngineConfig{Languages: []string{"ita", "eng"}, PSM: 6})
		require.NoError(t, err)
		assert.Equal(t, "tesseract", eng.Name())

		_, err = f(context.Background(), EngineConfig{Languages: []string{"deu"}, PSM: 6})
		assert.ErrorContains(t, err, `"deu"`)
	})

	t.Run("recognize builds tsv invocation", func(t *testing.T) {
		r := &stubRunner{fn: func(_ string, args []string) ([]byte, []byte, error) {
			if args[0] == "--list-langs" {
				return []byte(langs), nil, nil
			}
			return []byte(sampleTSV), nil, nil
		}}
		eng, err := NewTesseractFactory(Config{TessdataDir: "/td"}, r, nil)(context.Background(),
			EngineConfig{Languages: []string{"ita", "eng"}, PSM: 6, PreserveSpaces: true})
		require.NoError(t, err)

		rec, err := eng.Recognize(context.Background(), []byte("png"))
		require.NoError(t, err)
		assert.Len(t, rec.Words, 4)

		call := strings.Join(r.calls[len(r.calls)-1], " ")
		assert.Contains(t, call, "stdout -l ita+eng --psm 6")
		assert.Contains(t, call, "--tessdata-dir /td")
		assert.Contains(t, call, "-c preserve_interword_spaces=1 tsv")
	})
}

type fakeEngine struct{ name string }

func (f fakeEngine) Name() string { return f.name }
func (f fakeEngine) Recognize(context.Context, []byte) (Recognition, error) {
	return Recognition{Text: f.name}, nil
}
func (f fakeEngine) Close() error { return nil }

func TestAcquire(t *testing.T) {
	t.Run("falls through to next attempt", func(t *testing.T) {
		var tried []string
		factory := func(_ context.Context, c EngineConfig) (Engine, error) {
			tried = append(tried, c.String())
			if c.Lang() == "ita+eng" {
				return nil, errors.New("missing eng")
			}
			return fakeEngine{name: c.String()}, nil
		}
		eng, err := Acquire(context.Background(), factory, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "ita/psm6", eng.Name())
		assert.Equal(t, []string{"ita+eng/psm6", "ita/psm6"}, tried)
	})

	t.Run("all attempts fail", func(t *testing.T) {
		factory := func(context.Context, EngineConfig) (Engine, error) { return nil, errors.New("no binary") }
		_, err := Acquire(context.Background(), factory, DefaultAttempts(), nil)
		assert.ErrorIs(t, err, ErrEngineUnavailable)
		assert.ErrorContains(t, err, "eng/psm4")
	})

	t.Run("configured attempt goes first without duplicates", func(t *testing.T) {
		got := AttemptsFor([]string{"ita"}, 6)
		require.Len(t, got, 3)
		assert.Equal(t, "ita/psm6", got[0].String())
		assert.Equal(t, "ita+eng/psm6", got[1].String())
	})
}

func TestPreprocess(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		src.Set(x, 4, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, err := Preprocess(buf.Bytes())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, g, b, _ := img.At(3, 4).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)

	_, err = Preprocess([]byte("not an image"))
	assert.Error(t, err)
}

func TestTextConfidence(t *testing.T) {
	assert.Zero(t, TextConfidence(""))
	high := TextConfidence("01 15/06/2024 1.200,00\n02 15/07/2024 1.200,00")
	low := TextConfidence("lorem ipsum\ndolor sit amet")
	assert.Greater(t, high, low)
	assert.LessOrEqual(t, high, 1.0)
}
