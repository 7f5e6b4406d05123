// Package filefilters holds the filters applied to downloaded instances
// on disk, between download and compilation.
package filefilters

import (
	"path/filepath"
	"strings"

	"easel/internal/config"
	"easel/internal/fileutil"
	"easel/internal/services"
)

var (
	codeExtensions  = []string{".js", ".html", ".md", ".py", ".rb", ".php", ".java", ".c", ".cpp"}
	styleExtensions = []string{".css"}
	assetExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp"}

	// Boilerplate that says nothing about the site itself.
	excludedSpecialFiles = []string{
		"license.md",
		"contributing.md",
		"gemfile",
		"gemfile.lock",
		"_config.yml",
	}
)

// RepoShape rejects repositories whose source tree is too small, too
// large, or content-free to render into a useful instance.
type RepoShape struct {
	minLinesCode  int
	maxFilesCode  int
	maxAssets     int
	maxLinesCode  int
	maxLinesStyle int
	requireMore   bool
}

// NewRepoShape builds the filter from the configured bounds.
func NewRepoShape(cfg config.Filters) *RepoShape {
	return &RepoShape{
		minLinesCode:  cfg.MinLinesCode,
		maxFilesCode:  cfg.MaxFilesCode,
		maxAssets:     cfg.MaxAssets,
		maxLinesCode:  cfg.MaxLinesCode,
		maxLinesStyle: cfg.MaxLinesStyle,
		requireMore:   cfg.RequireMoreThanReadme,
	}
}

func (f *RepoShape) Name() string { return "repo_shape" }

// Filter implements filter.FileFilter. The info map reports the measured
// shape whether or not the repository is kept.
func (f *RepoShape) Filter(path string) (bool, map[string]any, error) {
	files, err := fileutil.ListFiles(path)
	if err != nil {
		return false, nil, services.Wrap(services.ErrFilter, "repo_shape", "list", path, err)
	}

	var codeFiles, styleFiles, assetFiles []string
	for _, rel := range files {
		base := strings.ToLower(filepath.Base(rel))
		if isExcludedSpecial(base) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(rel))
		switch {
		case contains(codeExtensions, ext):
			codeFiles = append(codeFiles, rel)
		case contains(styleExtensions, ext):
			styleFiles = append(styleFiles, rel)
		case contains(assetExtensions, ext):
			assetFiles = append(assetFiles, rel)
		}
	}

	onlyReadme := len(codeFiles) == 1 &&
		strings.ToLower(filepath.Base(codeFiles[0])) == "readme.md"

	codeLines, err := countAll(path, codeFiles)
	if err != nil {
		return false, nil, err
	}
	styleLines, err := countAll(path, styleFiles)
	if err != nil {
		return false, nil, err
	}

	info := map[string]any{
		"only_contains_readme": onlyReadme,
		"num_files":            len(codeFiles),
		"num_lines":            codeLines,
		"num_lines_style":      styleLines,
		"num_assets":           len(assetFiles),
	}

	switch {
	case len(codeFiles) == 0,
		len(codeFiles) > f.maxFilesCode,
		len(assetFiles) > f.maxAssets,
		codeLines < f.minLinesCode,
		codeLines > f.maxLinesCode,
		styleLines > f.maxLinesStyle,
		f.requireMore && onlyReadme:
		return false, info, nil
	}
	return true, info, nil
}

func countAll(root string, files []string) (int, error) {
	total := 0
	for _, rel := range files {
		lines, err := fileutil.CountLines(filepath.Join(root, rel))
		if err != nil {
			return 0, services.Wrap(services.ErrFilter, "repo_shape", "count", rel, err)
		}
		total += lines
	}
	return total, nil
}

func isExcludedSpecial(base string) bool {
	return contains(excludedSpecialFiles, base)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
