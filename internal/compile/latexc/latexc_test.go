package latexc

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"easel/internal/compile"
	"easel/internal/config"
	"easel/internal/imaging"
	"easel/internal/logging"
	"easel/internal/scrape"
	"easel/internal/services"
)

// fakeRenderer writes a synthetic page instead of running pdflatex.
type fakeRenderer struct {
	white bool
}

func (r *fakeRenderer) Render(_ context.Context, texSource, workDir string) (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if r.white || (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	path := filepath.Join(workDir, "page.png")
	if err := imaging.SavePNG(path, img); err != nil {
		return "", err
	}
	return path, nil
}

func writeTex(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newCompiler(t *testing.T, tracker *compile.Tracker, renderer Renderer) *Compiler {
	t.Helper()
	cfg := &config.Config{}
	cfg.Compile.MaxPerCategoryPerSource = 5
	cfg.Compile.Crop = false
	return New(cfg, tracker, renderer, logging.NewNop())
}

func TestExtractSpans(t *testing.T) {
	source := `intro
\begin{equation}
a = b % trailing comment
\end{equation}
% \begin{equation} commented out \end{equation}
\begin{equation}
c = d
\end{equation}`

	spans := extractSpans(source, delimiterPair{`\begin{equation}`, `\end{equation}`})
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if !strings.Contains(spans[0], "a = b") {
		t.Errorf("span = %q", spans[0])
	}
	if strings.Contains(spans[0], "trailing comment") {
		t.Errorf("comment survived extraction: %q", spans[0])
	}
}

func TestExtractSpansNested(t *testing.T) {
	source := `\begin{figure}
outer
\begin{figure}
inner
\end{figure}
\end{figure}`

	spans := extractSpans(source, delimiterPair{`\begin{figure}`, `\end{figure}`})
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1 outermost", len(spans))
	}
	if !strings.Contains(spans[0], "inner") {
		t.Errorf("outer span lost nested content")
	}
}

func TestExtractSpansUnbalanced(t *testing.T) {
	spans := extractSpans(`\begin{table} never closed`, delimiterPair{`\begin{table}`, `\end{table}`})
	if len(spans) != 0 {
		t.Fatalf("got %d spans from unbalanced source", len(spans))
	}
}

func TestCompileExtractsCategories(t *testing.T) {
	source := t.TempDir()
	writeTex(t, source, "main.tex", `\documentclass{article}
\begin{document}
\begin{equation}
E = mc^2
\end{equation}
\begin{figure}
\includegraphics[width=\linewidth]{plots/result}
\end{figure}
\begin{figure}
no graphics here
\end{figure}
\end{document}`)
	writeTex(t, source, "plots/result.png", "fake image bytes")

	dest := t.TempDir()
	tracker := compile.NewTracker(100)
	c := newCompiler(t, tracker, &fakeRenderer{})

	results, info, err := c.Compile(context.Background(), source, dest, &scrape.Result{InstanceName: "paper"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want equation + figure", len(results))
	}
	if results[0].Category != "equation" || results[1].Category != "figure" {
		t.Errorf("categories = %s, %s", results[0].Category, results[1].Category)
	}
	if !strings.Contains(results[0].Text, "E = mc^2") {
		t.Errorf("equation text = %q", results[0].Text)
	}
	if strings.Contains(results[1].Text, "plots/result") {
		t.Errorf("graphics reference not rewritten: %q", results[1].Text)
	}
	if !strings.Contains(results[1].Text, "0_plots_result") {
		t.Errorf("rewritten reference missing: %q", results[1].Text)
	}
	if len(results[1].AssetsPaths) != 1 {
		t.Fatalf("figure assets = %v", results[1].AssetsPaths)
	}
	if _, err := os.Stat(results[1].AssetsPaths[0]); err != nil {
		t.Errorf("staged asset missing: %v", err)
	}
	if _, err := os.Stat(results[0].RenderingPath); err != nil {
		t.Errorf("rendering missing: %v", err)
	}
	extracted := info["extracted"].(map[string]int)
	if extracted["equation"] != 1 || extracted["figure"] != 1 {
		t.Errorf("extracted = %v", extracted)
	}
}

func TestCompileSkipsSaturatedCategory(t *testing.T) {
	source := t.TempDir()
	writeTex(t, source, "main.tex", `\begin{equation}
x = y
\end{equation}`)

	tracker := compile.NewTracker(1)
	tracker.Resume("equation", 1)
	c := newCompiler(t, tracker, &fakeRenderer{})

	_, _, err := c.Compile(context.Background(), source, t.TempDir(), &scrape.Result{InstanceName: "paper"})
	if !errors.Is(err, services.ErrCompilation) {
		t.Fatalf("err = %v, want ErrCompilation when only category is saturated", err)
	}
}

func TestCompileDiscardsBlankRenders(t *testing.T) {
	source := t.TempDir()
	writeTex(t, source, "main.tex", `\begin{equation}
x = y
\end{equation}`)

	c := newCompiler(t, compile.NewTracker(100), &fakeRenderer{white: true})
	_, _, err := c.Compile(context.Background(), source, t.TempDir(), &scrape.Result{InstanceName: "paper"})
	if !errors.Is(err, services.ErrCompilation) {
		t.Fatalf("err = %v, want ErrCompilation for all-blank renders", err)
	}
}

func TestCompileNoTexFiles(t *testing.T) {
	c := newCompiler(t, compile.NewTracker(100), &fakeRenderer{})
	_, _, err := c.Compile(context.Background(), t.TempDir(), t.TempDir(), &scrape.Result{InstanceName: "empty"})
	if !errors.Is(err, services.ErrCompilation) {
		t.Fatalf("err = %v, want ErrCompilation", err)
	}
}
