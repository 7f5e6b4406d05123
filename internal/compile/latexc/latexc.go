// Package latexc compiles arXiv paper sources into rendered instances,
// one per extractable environment (equations, figures, tables,
// algorithms, plots).
package latexc

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"easel/internal/compile"
	"easel/internal/config"
	"easel/internal/fileutil"
	"easel/internal/imaging"
	"easel/internal/logging"
	"easel/internal/scrape"
	"easel/internal/services"
)

// Renders brighter than this are considered empty pages.
const blankWhitePercent = 99.5

// Compiler extracts delimited environments from a paper's tex sources
// and renders each as a standalone document.
type Compiler struct {
	renderer     Renderer
	tracker      *compile.Tracker
	maxPerSource int
	crop         bool
	logger       *slog.Logger
}

// New builds the compiler. The tracker is shared with the runner so
// saturated categories stop producing work.
func New(cfg *config.Config, tracker *compile.Tracker, renderer Renderer, logger *slog.Logger) *Compiler {
	return &Compiler{
		renderer:     renderer,
		tracker:      tracker,
		maxPerSource: cfg.Compile.MaxPerCategoryPerSource,
		crop:         cfg.Compile.Crop,
		logger:       logging.NewComponentLogger(logger, "latex"),
	}
}

func (c *Compiler) Name() string { return "latex" }

// span is one extracted environment plus the directory of the tex file
// it came from, which anchors relative asset references.
type span struct {
	text string
	dir  string
}

// Compile implements compile.Compiler.
func (c *Compiler) Compile(ctx context.Context, dataPath, destPath string, result *scrape.Result) ([]compile.Result, map[string]any, error) {
	texFiles, err := findTexFiles(dataPath)
	if err != nil {
		return nil, nil, err
	}
	if len(texFiles) == 0 {
		return nil, nil, services.Wrap(services.ErrCompilation, "latex", "scan",
			fmt.Sprintf("no tex files in %s", result.InstanceName), nil)
	}

	var results []compile.Result
	extracted := make(map[string]int)
	assetCounter := 0

	for _, group := range categoryDelimiters {
		if c.tracker.Saturated(group.category) {
			continue
		}

		spans := c.collectSpans(texFiles, group.pairs, group.mustContain)
		compiled := 0
		for _, sp := range spans {
			if compiled >= c.maxPerSource {
				break
			}
			rendered, ok := c.renderSpan(ctx, sp, group.category, destPath, len(results), &assetCounter)
			if !ok {
				continue
			}
			results = append(results, rendered)
			extracted[group.category]++
			compiled++
		}
	}

	if len(results) == 0 {
		return nil, nil, services.Wrap(services.ErrCompilation, "latex", "compile",
			fmt.Sprintf("no renderable environments in %s", result.InstanceName), nil)
	}

	info := map[string]any{
		"num_tex_files": len(texFiles),
		"extracted":     extracted,
	}
	return results, info, nil
}

// collectSpans gathers deduplicated outermost spans for one category
// across every tex file.
func (c *Compiler) collectSpans(texFiles []string, pairs []delimiterPair, mustContain string) []span {
	var spans []span
	seen := make(map[string]struct{})
	for _, texFile := range texFiles {
		data, err := os.ReadFile(texFile)
		if err != nil {
			continue
		}
		source := string(data)
		dir := filepath.Dir(texFile)
		for _, pair := range pairs {
			for _, text := range extractSpans(source, pair) {
				if mustContain != "" && !strings.Contains(text, mustContain) {
					continue
				}
				if _, dup := seen[text]; dup {
					continue
				}
				seen[text] = struct{}{}
				spans = append(spans, span{text: text, dir: dir})
			}
		}
	}
	return dropContained(spans)
}

// dropContained removes spans fully embedded in another kept span, such
// as a tabular inside an already extracted table.
func dropContained(spans []span) []span {
	kept := spans[:0]
	for i, candidate := range spans {
		contained := false
		for j, other := range spans {
			if i != j && len(other.text) > len(candidate.text) && strings.Contains(other.text, candidate.text) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// renderSpan renders one environment. Failures are logged and skipped,
// a paper with one broken figure still yields its other environments.
func (c *Compiler) renderSpan(ctx context.Context, sp span, category, destPath string, index int, assetCounter *int) (compile.Result, bool) {
	workDir := filepath.Join(destPath, fmt.Sprintf("build_%s_%d", category, index))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return compile.Result{}, false
	}

	text, assets, err := c.stageAssets(sp, workDir, destPath, assetCounter)
	if err != nil {
		c.logger.Debug("span skipped",
			logging.String("category", category),
			logging.Error(err),
		)
		return compile.Result{}, false
	}

	imagePath, err := c.renderer.Render(ctx, documentBegin+text+documentEnd, workDir)
	if err != nil {
		c.logger.Debug("render failed",
			logging.String("category", category),
			logging.Error(err),
		)
		return compile.Result{}, false
	}

	img, err := imaging.Load(imagePath)
	if err != nil {
		return compile.Result{}, false
	}
	if imaging.WhiteRatio(img) >= blankWhitePercent {
		c.logger.Debug("blank render skipped", logging.String("category", category))
		return compile.Result{}, false
	}
	if c.crop {
		if bounds, ok := imaging.ContentBounds(img); ok {
			img = imaging.Crop(img, bounds)
		}
	}

	renderingPath := filepath.Join(destPath, fmt.Sprintf("%s_%d.png", category, index))
	if err := imaging.SavePNG(renderingPath, img); err != nil {
		return compile.Result{}, false
	}
	structurePath := filepath.Join(destPath, fmt.Sprintf("%s_%d.tex", category, index))
	if err := os.WriteFile(structurePath, []byte(text), 0o644); err != nil {
		return compile.Result{}, false
	}

	return compile.Result{
		RenderingPath: renderingPath,
		Category:      category,
		DataPath:      structurePath,
		Text:          text,
		AssetsPaths:   assets,
	}, true
}

var includeGraphicsPattern = regexp.MustCompile(`\\includegraphics\s*(?:\[[^\]]*\])?\s*\{([^}]*)\}`)

var assetExtensionCandidates = []string{"", ".png", ".jpg", ".jpeg", ".pdf", ".eps"}

// stageAssets resolves every graphics reference in the span, copies the
// files into the build directory under collision-free names, and
// rewrites the references. A reference that resolves nowhere fails the
// whole span.
func (c *Compiler) stageAssets(sp span, workDir, destPath string, assetCounter *int) (string, []string, error) {
	text := sp.text
	var staged []string
	for _, match := range includeGraphicsPattern.FindAllStringSubmatch(sp.text, -1) {
		ref := strings.TrimSpace(match[1])
		source := findAsset(sp.dir, ref)
		if source == "" {
			return "", nil, services.Wrap(services.ErrCompilation, "latex", "assets",
				fmt.Sprintf("unresolved graphics reference %q", ref), nil)
		}

		newName := fmt.Sprintf("%d_%s", *assetCounter, fileutil.FlattenPath(ref))
		if filepath.Ext(newName) == "" {
			newName += filepath.Ext(source)
		}
		*assetCounter++

		if err := fileutil.CopyFile(source, filepath.Join(workDir, newName)); err != nil {
			return "", nil, services.Wrap(services.ErrCompilation, "latex", "assets", newName, err)
		}
		finalPath := filepath.Join(destPath, newName)
		if err := fileutil.CopyFile(source, finalPath); err != nil {
			return "", nil, services.Wrap(services.ErrCompilation, "latex", "assets", newName, err)
		}
		staged = append(staged, finalPath)
		text = strings.ReplaceAll(text, "{"+match[1]+"}", "{"+newName+"}")
	}
	return text, staged, nil
}

func findAsset(texDir, ref string) string {
	for _, ext := range assetExtensionCandidates {
		candidate := filepath.Join(texDir, ref+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func findTexFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(path), ".tex") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrCompilation, "latex", "scan", root, err)
	}
	return files, nil
}
