// Package musicc compiles scanned sheet-music PDFs into per-system
// image instances by slicing one rasterized page along its horizontal
// whitespace gaps.
package musicc

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"easel/internal/compile"
	"easel/internal/config"
	"easel/internal/imaging"
	"easel/internal/logging"
	"easel/internal/scrape"
	"easel/internal/services"
)

// A usable scan is mostly paper. Pages darker than this are photographs
// or inverted scans.
const minWhitePercent = 50.0

// Compiler picks one inner page of a score, verifies it is sheet music,
// and cuts it into staff systems.
type Compiler struct {
	rasterizer Rasterizer
	classifier Classifier
	tracker    *compile.Tracker
	maxPerPage int
	crop       bool
	logger     *slog.Logger
	rng        *rand.Rand
}

// New builds the compiler with the given page rasterizer and sheet
// classifier.
func New(cfg *config.Config, tracker *compile.Tracker, rasterizer Rasterizer, classifier Classifier, logger *slog.Logger) *Compiler {
	return &Compiler{
		rasterizer: rasterizer,
		classifier: classifier,
		tracker:    tracker,
		maxPerPage: cfg.Compile.MaxPerCategoryPerSource,
		crop:       cfg.Compile.Crop,
		logger:     logging.NewComponentLogger(logger, "music"),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Compiler) Name() string { return "music" }

// choosePage selects which page to rasterize. Late-middle pages avoid
// both title matter and sparse final pages.
func choosePage(pageCount int, rng *rand.Rand) int {
	switch {
	case pageCount > 4:
		return 3 + rng.Intn(pageCount-4)
	case pageCount == 4:
		return 3
	case pageCount == 2 || pageCount == 3:
		return 2
	default:
		return 1
	}
}

// Compile implements compile.Compiler. dataPath is the downloaded PDF.
func (c *Compiler) Compile(ctx context.Context, dataPath, destPath string, result *scrape.Result) ([]compile.Result, map[string]any, error) {
	if c.tracker.Saturated("music") {
		return nil, nil, services.Wrap(services.ErrCompilation, "music", "compile",
			"music category already at target", nil)
	}

	pageCount, _ := result.AdditionalInfo["n_pages"].(int)
	if pageCount < 1 {
		pageCount = 1
	}
	page := choosePage(pageCount, c.rng)

	pagePath := filepath.Join(destPath, "page.png")
	if err := c.rasterizer.RenderPage(ctx, dataPath, page, pagePath); err != nil {
		return nil, nil, err
	}

	sheet, err := c.classifier.IsSheet(pagePath)
	if err != nil {
		return nil, nil, err
	}
	if !sheet {
		return nil, nil, services.Wrap(services.ErrCompilation, "music", "classify",
			fmt.Sprintf("page %d of %s is not sheet music", page, result.InstanceName), nil)
	}

	img, err := imaging.Load(pagePath)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrCompilation, "music", "load", pagePath, err)
	}
	if imaging.WhiteRatio(img) < minWhitePercent {
		return nil, nil, services.Wrap(services.ErrCompilation, "music", "inspect",
			fmt.Sprintf("page %d of %s is too dark to slice", page, result.InstanceName), nil)
	}

	segments := imaging.Segments(img, imaging.DefaultMinGapFraction, imaging.DefaultMinSegmentFraction)
	if page == 1 && len(segments) > 0 {
		// The first band on a title page is the heading, not a system.
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return nil, nil, services.Wrap(services.ErrCompilation, "music", "segment",
			fmt.Sprintf("no staff systems found on page %d of %s", page, result.InstanceName), nil)
	}

	var results []compile.Result
	for i, segment := range segments {
		if len(results) >= c.maxPerPage {
			break
		}
		strip := imaging.CropRows(img, segment.Start, segment.End)
		if c.crop {
			if bounds, ok := imaging.ContentBounds(strip); ok {
				strip = imaging.Crop(strip, bounds)
			}
		}
		segmentPath := filepath.Join(destPath, fmt.Sprintf("music_%d.png", i))
		if err := imaging.SavePNG(segmentPath, strip); err != nil {
			return nil, nil, services.Wrap(services.ErrCompilation, "music", "save", segmentPath, err)
		}
		results = append(results, compile.Result{
			RenderingPath: segmentPath,
			Category:      "music",
		})
	}

	if err := os.Remove(pagePath); err != nil && !os.IsNotExist(err) {
		c.logger.Debug("page cleanup failed", logging.Error(err))
	}

	info := map[string]any{
		"page":        page,
		"n_pages":     pageCount,
		"n_segments":  len(segments),
		"n_instances": len(results),
	}
	return results, info, nil
}
