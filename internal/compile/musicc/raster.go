package musicc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"easel/internal/imaging"
	"easel/internal/services"
)

// Rasterizer renders one page of a PDF to a PNG at destPath.
type Rasterizer interface {
	RenderPage(ctx context.Context, pdfPath string, page int, destPath string) error
}

// Classifier decides whether a page image is scanned sheet music.
type Classifier interface {
	IsSheet(imagePath string) (bool, error)
}

// CommandRasterizer shells out to pdftoppm.
type CommandRasterizer struct {
	// DPI for rasterization, 150 when zero.
	DPI int
}

// RenderPage implements Rasterizer.
func (r *CommandRasterizer) RenderPage(ctx context.Context, pdfPath string, page int, destPath string) error {
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 150
	}
	prefix := strings.TrimSuffix(destPath, filepath.Ext(destPath))
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png", "-singlefile",
		"-f", fmt.Sprint(page), "-l", fmt.Sprint(page),
		"-r", fmt.Sprint(dpi), pdfPath, prefix)
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrCompilation, "music", "pdftoppm",
			strings.TrimSpace(string(output)), err)
	}
	if _, err := os.Stat(destPath); err != nil {
		return services.Wrap(services.ErrCompilation, "music", "pdftoppm",
			fmt.Sprintf("page %d produced no image", page), err)
	}
	return nil
}

// HeuristicClassifier accepts pages that look like printed systems on
// paper: a mostly white page carrying at least two separated ink bands.
type HeuristicClassifier struct{}

// IsSheet implements Classifier.
func (HeuristicClassifier) IsSheet(imagePath string) (bool, error) {
	img, err := imaging.Load(imagePath)
	if err != nil {
		return false, services.Wrap(services.ErrCompilation, "music", "classify", imagePath, err)
	}
	white := imaging.WhiteRatio(img)
	if white < 40.0 || white > 98.0 {
		return false, nil
	}
	segments := imaging.Segments(img, imaging.DefaultMinGapFraction, imaging.DefaultMinSegmentFraction)
	return len(segments) >= 2, nil
}
