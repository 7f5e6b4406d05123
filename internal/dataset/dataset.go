// Package dataset persists accepted instances into the on-disk
// collection layout:
//
//	{output}/{runner}/{category}/metadata/{id}.json
//	{output}/{runner}/{category}/images/{id}.png
//	{output}/{runner}/{category}/structures/{id}{.ext|.tar.gz}
//	{output}/{runner}/{category}/assets/{name}
//	{output}/{runner}/{category}/text/{id}.txt
package dataset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"easel/internal/fileutil"
	"easel/internal/logging"
)

// Instance is one accepted, fully compiled and filtered instance ready
// to be written out.
type Instance struct {
	Category      string
	RenderingPath string
	// StructurePath is a file or a directory. Directories are archived
	// as tar.gz.
	StructurePath string
	Text          string
	AssetsPaths   []string
	Metadata      map[string]any
}

// Writer persists instances under one runner's output root.
type Writer struct {
	root   string
	logger *slog.Logger
}

// NewWriter builds a writer rooted at {outputDir}/{runner}.
func NewWriter(outputDir, runner string, logger *slog.Logger) *Writer {
	return &Writer{
		root:   filepath.Join(outputDir, runner),
		logger: logging.NewComponentLogger(logger, "dataset"),
	}
}

// Root returns the runner's output root.
func (w *Writer) Root() string { return w.root }

// Persist writes one instance and returns its generated id. A failure
// partway leaves partial files behind; ids are unique so a retry never
// collides.
func (w *Writer) Persist(instance Instance) (string, error) {
	id := uuid.New().String()
	categoryDir := filepath.Join(w.root, instance.Category)

	for _, partition := range []string{"metadata", "images", "structures", "assets", "text"} {
		if err := os.MkdirAll(filepath.Join(categoryDir, partition), 0o755); err != nil {
			return "", fmt.Errorf("dataset: persist %s: %w", partition, err)
		}
	}

	imageExt := filepath.Ext(instance.RenderingPath)
	if imageExt == "" {
		imageExt = ".png"
	}
	imagePath := filepath.Join(categoryDir, "images", id+imageExt)
	if err := fileutil.CopyFile(instance.RenderingPath, imagePath); err != nil {
		return "", fmt.Errorf("dataset: persist image: %w", err)
	}

	var assetNames []string
	for _, assetPath := range instance.AssetsPaths {
		name := filepath.Base(assetPath)
		if err := fileutil.CopyFile(assetPath, filepath.Join(categoryDir, "assets", name)); err != nil {
			return "", fmt.Errorf("dataset: persist asset %s: %w", name, err)
		}
		assetNames = append(assetNames, name)
	}

	if instance.StructurePath != "" {
		if err := w.persistStructure(categoryDir, id, instance.StructurePath); err != nil {
			return "", err
		}
	}

	if instance.Text != "" {
		textPath := filepath.Join(categoryDir, "text", id+".txt")
		if err := os.WriteFile(textPath, []byte(instance.Text), 0o644); err != nil {
			return "", fmt.Errorf("dataset: persist text: %w", err)
		}
	}

	metadata := pruneUnserializable(instance.Metadata)
	metadata["uuid"] = id
	metadata["category"] = instance.Category
	metadata["assets"] = assetNames
	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("dataset: persist metadata: %w", err)
	}
	metadataPath := filepath.Join(categoryDir, "metadata", id+".json")
	if err := os.WriteFile(metadataPath, encoded, 0o644); err != nil {
		return "", fmt.Errorf("dataset: persist metadata: %w", err)
	}

	w.logger.Debug("instance persisted",
		logging.String("category", instance.Category),
		logging.String("id", id),
	)
	return id, nil
}

func (w *Writer) persistStructure(categoryDir, id, structurePath string) error {
	info, err := os.Stat(structurePath)
	if err != nil {
		return fmt.Errorf("dataset: persist structure: %w", err)
	}
	if info.IsDir() {
		archivePath := filepath.Join(categoryDir, "structures", id+".tar.gz")
		if err := fileutil.ArchiveDir(structurePath, archivePath); err != nil {
			return fmt.Errorf("dataset: persist structure archive: %w", err)
		}
		return nil
	}
	destPath := filepath.Join(categoryDir, "structures", id+filepath.Ext(structurePath))
	if err := fileutil.CopyFile(structurePath, destPath); err != nil {
		return fmt.Errorf("dataset: persist structure: %w", err)
	}
	return nil
}

// Finalize removes partition directories that stayed empty, such as
// text/ for image-only categories.
func (w *Writer) Finalize() error {
	categories, err := os.ReadDir(w.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("dataset: finalize %s: %w", w.root, err)
	}
	for _, category := range categories {
		if !category.IsDir() {
			continue
		}
		for _, partition := range []string{"text", "structures", "assets"} {
			dir := filepath.Join(w.root, category.Name(), partition)
			entries, err := os.ReadDir(dir)
			if err != nil || len(entries) > 0 {
				continue
			}
			if err := os.Remove(dir); err != nil {
				return fmt.Errorf("dataset: finalize %s: %w", dir, err)
			}
		}
	}
	return nil
}

// pruneUnserializable copies metadata, dropping values JSON cannot
// represent.
func pruneUnserializable(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if _, err := json.Marshal(value); err != nil {
			continue
		}
		out[key] = value
	}
	return out
}
