package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/installments-tracker/internal/core/runner"
)

// TesseractCLI recognises page rasters by shelling out to the tesseract binary
// in TSV mode.
type TesseractCLI struct {
	cfg    Config
	engine EngineConfig
	runner runner.Runner
	logger *slog.Logger
}

// NewTesseractFactory returns a Factory that checks `tesseract --list-langs`
// and fails when a requested language is not installed.
func NewTesseractFactory(cfg Config, r runner.Runner, logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = runner.NewExec(logger)
	}
	cfg = cfg.withDefaults()

	return func(ctx context.Context, ec EngineConfig) (Engine, error) {
		if len(ec.Languages) == 0 {
			return nil, fmt.Errorf("no languages configured")
		}
		args := []string{"--list-langs"}
		if cfg.TessdataDir != "" {
			args = append(args, "--tessdata-dir", cfg.TessdataDir)
		}
		out, errb, err := r.Run(ctx, cfg.Tesseract, args...)
		if err != nil {
			return nil, fmt.Errorf("tesseract --list-langs: %w (%s)", err, runner.Truncate(string(errb), 512))
		}
		// older builds print the list on stderr
		installed := parseLangList(append(out, errb...))
		for _, l := range ec.Languages {
			if !installed[l] {
				return nil, fmt.Errorf("language %q not installed", l)
			}
		}
		return &TesseractCLI{cfg: cfg, engine: ec, runner: r, logger: logger}, nil
	}
}

func (t *TesseractCLI) Name() string { return "tesseract" }

func (t *TesseractCLI) Close() error { return nil }

func (t *TesseractCLI) Recognize(ctx context.Context, img []byte) (Recognition, error) {
	tmpDir, err := os.MkdirTemp("", "it-ocr-*")
	if err != nil {
		return Recognition{}, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", err)
		}
	}()

	path := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(path, img, 0o600); err != nil {
		return Recognition{}, err
	}

	// tesseract <file> stdout -l <lang> --psm N [-c preserve_interword_spaces=1] tsv
	args := []string{path, "stdout", "-l", t.engine.Lang()}
	if t.engine.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.engine.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "--dpi", strconv.Itoa(t.cfg.DPI))
	if t.engine.PreserveSpaces {
		args = append(args, "-c", "preserve_interword_spaces=1")
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract TSV: %w (%s)", err, runner.Truncate(string(errb), 512))
	}
	return ParseTSV(out), nil
}

// ParseTSV reads tesseract TSV output. Columns: level page block par line
// word left top width height conf text. Only level 5 (word) rows are kept.
func ParseTSV(out []byte) Recognition {
	var (
		words []Word
		text  strings.Builder
		last  string
	)
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	first := true
	for sc.Scan() {
		ln := sc.Text()
		if first {
			first = false
			if strings.HasPrefix(ln, "level") {
				continue
			}
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		word := strings.TrimSpace(strings.Join(cols[11:], " "))
		if word == "" {
			continue
		}
		nums := make([]float64, 5)
		ok := true
		for i := range nums {
			v, err := strconv.ParseFloat(cols[6+i], 64)
			if err != nil {
				ok = false
				break
			}
			nums[i] = v
		}
		if !ok {
			continue
		}
		conf := nums[4] / 100.0
		if conf < 0 {
			conf = 0
		}
		words = append(words, Word{Text: word, X: nums[0], Y: nums[1], W: nums[2], H: nums[3], Confidence: conf})

		lineKey := strings.Join(cols[1:5], ".")
		switch {
		case text.Len() == 0:
		case lineKey != last:
			text.WriteByte('\n')
		default:
			text.WriteByte(' ')
		}
		text.WriteString(word)
		last = lineKey
	}
	return Recognition{Text: text.String(), Words: words, Confidence: MeanConfidence(words)}
}

func parseLangList(out []byte) map[string]bool {
	langs := map[string]bool{}
	for _, ln := range strings.Split(string(out), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.Contains(ln, " ") {
			continue // header "List of available languages ..."
		}
		langs[ln] = true
	}
	return langs
}
