package pdfdoc

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joseph-ayodele/installments-tracker/internal/core/runner"
)

// RenderPage rasterises one page through pdftoppm. scale is pixels per PDF
// point, so scale 300/72 renders at 300 dpi.
func (d *document) RenderPage(ctx context.Context, page int, scale float64) ([]byte, error) {
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("page %d out of range [1, %d]", page, d.pages)
	}
	if scale <= 0 {
		scale = 300.0 / 72.0
	}
	dpi := int(math.Round(72 * scale))

	tmpDir, err := os.MkdirTemp("", "it-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			d.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)
	// pdftoppm -f N -l N -r DPI -png -singlefile <in.pdf> <tmp/page>
	_, errb, err := d.runner.Run(ctx, d.cfg.Pdftoppm,
		"-f", n, "-l", n, "-r", strconv.Itoa(dpi), "-png", "-singlefile", d.path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w (%s)", page, err, runner.Truncate(string(errb), 512))
	}

	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d produced no image: %w", page, err)
	}
	return img, nil
}
