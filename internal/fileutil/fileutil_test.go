package fileutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestListFilesRecursive(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		"a.txt",
		filepath.Join("sub", "b.txt"),
		filepath.Join("sub", "deep", "c.txt"),
	}
	for _, p := range paths {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(files)
	sort.Strings(paths)
	if len(files) != len(paths) {
		t.Fatalf("got %d files, want %d", len(files), len(paths))
	}
	for i := range files {
		if files[i] != paths[i] {
			t.Fatalf("got %q, want %q", files[i], paths[i])
		}
	}
}

func TestCountLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := CountLines(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("got %d lines", n)
	}
}

func TestResetDirClearsContents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "work")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stale.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ResetDir(dir); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("directory should be empty, has %d entries", len(entries))
	}
}

func TestFlattenPath(t *testing.T) {
	if got := FlattenPath("images/fig.png"); got != "images_fig.png" {
		t.Fatalf("got %q", got)
	}
	if got := FlattenPath("/abs/path.png"); got != "abs_path.png" {
		t.Fatalf("got %q", got)
	}
}

func TestArchiveRoundTripPrunesHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "site")
	for _, p := range []string{
		filepath.Join(src, "index.html"),
		filepath.Join(src, "css", "main.css"),
		filepath.Join(src, ".git", "HEAD"),
		filepath.Join(src, "_site", "index.html"),
	} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	archive := filepath.Join(dir, "site.tar.gz")
	if err := ArchiveDir(src, archive); err != nil {
		t.Fatal(err)
	}

	extracted := filepath.Join(dir, "out")
	if err := ExtractTarGz(archive, extracted); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(extracted, "index.html")); err != nil {
		t.Fatalf("index.html missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(extracted, "css", "main.css")); err != nil {
		t.Fatalf("css missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(extracted, ".git")); !os.IsNotExist(err) {
		t.Fatal(".git should be pruned")
	}
	if _, err := os.Stat(filepath.Join(extracted, "_site")); !os.IsNotExist(err) {
		t.Fatal("_site should be pruned")
	}
}
