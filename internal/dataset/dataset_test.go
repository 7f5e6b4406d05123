package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"easel/internal/logging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPersistFileStructure(t *testing.T) {
	tmp := t.TempDir()
	rendering := filepath.Join(tmp, "render.png")
	structure := filepath.Join(tmp, "instance.tex")
	asset := filepath.Join(tmp, "0_plots_result.png")
	writeFile(t, rendering, "png bytes")
	writeFile(t, structure, `\begin{equation}x\end{equation}`)
	writeFile(t, asset, "asset bytes")

	output := t.TempDir()
	writer := NewWriter(output, "latex", logging.NewNop())

	id, err := writer.Persist(Instance{
		Category:      "equation",
		RenderingPath: rendering,
		StructurePath: structure,
		Text:          `\begin{equation}x\end{equation}`,
		AssetsPaths:   []string{asset},
		Metadata: map[string]any{
			"instance_name": "paper-1",
			"date_scrapped": "2023-01-05",
			"bad_value":     func() {},
		},
	})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	categoryDir := filepath.Join(output, "latex", "equation")
	for _, rel := range []string{
		filepath.Join("images", id+".png"),
		filepath.Join("structures", id+".tex"),
		filepath.Join("text", id+".txt"),
		filepath.Join("assets", "0_plots_result.png"),
		filepath.Join("metadata", id+".json"),
	} {
		if _, err := os.Stat(filepath.Join(categoryDir, rel)); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(categoryDir, "metadata", id+".json"))
	if err != nil {
		t.Fatal(err)
	}
	var metadata map[string]any
	if err := json.Unmarshal(raw, &metadata); err != nil {
		t.Fatalf("metadata not valid json: %v", err)
	}
	if metadata["uuid"] != id {
		t.Errorf("uuid = %v", metadata["uuid"])
	}
	if metadata["category"] != "equation" {
		t.Errorf("category = %v", metadata["category"])
	}
	if metadata["instance_name"] != "paper-1" {
		t.Errorf("instance_name = %v", metadata["instance_name"])
	}
	if _, present := metadata["bad_value"]; present {
		t.Errorf("unserializable value survived")
	}
}

func TestPersistDirectoryStructure(t *testing.T) {
	tmp := t.TempDir()
	rendering := filepath.Join(tmp, "webpage.png")
	writeFile(t, rendering, "png bytes")
	site := filepath.Join(tmp, "site")
	writeFile(t, filepath.Join(site, "index.html"), "<html></html>")

	writer := NewWriter(t.TempDir(), "webpage", logging.NewNop())
	id, err := writer.Persist(Instance{
		Category:      "html",
		RenderingPath: rendering,
		StructurePath: site,
		Metadata:      map[string]any{},
	})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	archive := filepath.Join(writer.Root(), "html", "structures", id+".tar.gz")
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestFinalizePrunesEmptyPartitions(t *testing.T) {
	tmp := t.TempDir()
	rendering := filepath.Join(tmp, "music.png")
	writeFile(t, rendering, "png bytes")

	writer := NewWriter(t.TempDir(), "music", logging.NewNop())
	if _, err := writer.Persist(Instance{
		Category:      "music",
		RenderingPath: rendering,
		Metadata:      map[string]any{},
	}); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	categoryDir := filepath.Join(writer.Root(), "music")
	for _, partition := range []string{"text", "structures", "assets"} {
		if _, err := os.Stat(filepath.Join(categoryDir, partition)); !os.IsNotExist(err) {
			t.Errorf("empty partition %s not pruned", partition)
		}
	}
	for _, partition := range []string{"images", "metadata"} {
		if _, err := os.Stat(filepath.Join(categoryDir, partition)); err != nil {
			t.Errorf("partition %s missing: %v", partition, err)
		}
	}
}
