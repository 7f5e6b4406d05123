// Package webpagec compiles cloned site repositories into screenshot
// instances: serve the tree, capture the rendered page, archive the
// tree as ground truth.
package webpagec

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"easel/internal/compile"
	"easel/internal/config"
	"easel/internal/imaging"
	"easel/internal/logging"
	"easel/internal/scrape"
	"easel/internal/services"
)

// Screenshots brighter than this rendered nothing.
const blankWhitePercent = 99.5

// Compiler renders one screenshot per repository.
type Compiler struct {
	server        SiteServer
	screenshotter Screenshotter
	tracker       *compile.Tracker
	crop          bool
	logger        *slog.Logger
}

// New builds the compiler with the given site server and screenshotter.
func New(cfg *config.Config, tracker *compile.Tracker, server SiteServer, screenshotter Screenshotter, logger *slog.Logger) *Compiler {
	return &Compiler{
		server:        server,
		screenshotter: screenshotter,
		tracker:       tracker,
		crop:          cfg.Compile.Crop,
		logger:        logging.NewComponentLogger(logger, "webpage"),
	}
}

func (c *Compiler) Name() string { return "webpage" }

// Compile implements compile.Compiler. dataPath is the cloned
// repository, which becomes the instance structure.
func (c *Compiler) Compile(ctx context.Context, dataPath, destPath string, result *scrape.Result) ([]compile.Result, map[string]any, error) {
	category := "html"
	if language, ok := result.AdditionalInfo["language"].(string); ok && language != "" {
		category = strings.ToLower(language)
	}
	if c.tracker.Saturated(category) {
		return nil, nil, services.Wrap(services.ErrCompilation, "webpage", "compile",
			fmt.Sprintf("category %s already at target", category), nil)
	}

	siteURL, stop, err := c.server.Serve(ctx, dataPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if stopErr := stop(); stopErr != nil {
			c.logger.Debug("site server stop failed", logging.Error(stopErr))
		}
	}()

	renderingPath := filepath.Join(destPath, "webpage.png")
	if err := c.screenshotter.Capture(ctx, siteURL, renderingPath); err != nil {
		return nil, nil, err
	}

	img, err := imaging.Load(renderingPath)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrCompilation, "webpage", "load", renderingPath, err)
	}
	if imaging.WhiteRatio(img) >= blankWhitePercent {
		return nil, nil, services.Wrap(services.ErrCompilation, "webpage", "inspect",
			fmt.Sprintf("%s rendered an empty page", result.InstanceName), nil)
	}
	if c.crop {
		if bounds, ok := imaging.ContentBounds(img); ok {
			img = imaging.Crop(img, bounds)
			if err := imaging.SavePNG(renderingPath, img); err != nil {
				return nil, nil, services.Wrap(services.ErrCompilation, "webpage", "save", renderingPath, err)
			}
		}
	}

	results := []compile.Result{{
		RenderingPath: renderingPath,
		Category:      category,
		DataPath:      dataPath,
	}}
	info := map[string]any{"category": category}
	return results, info, nil
}
