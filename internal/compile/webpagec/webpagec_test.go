package webpagec

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"easel/internal/compile"
	"easel/internal/config"
	"easel/internal/imaging"
	"easel/internal/logging"
	"easel/internal/scrape"
	"easel/internal/services"
)

// paintScreenshotter writes a synthetic screenshot instead of driving a
// browser.
type paintScreenshotter struct {
	white bool
}

func (s *paintScreenshotter) Capture(_ context.Context, _, destPath string) error {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			if s.white || y < 8 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{40, 40, 200, 255})
			}
		}
	}
	return imaging.SavePNG(destPath, img)
}

func newCompiler(t *testing.T, screenshotter Screenshotter) *Compiler {
	t.Helper()
	cfg := &config.Config{}
	return New(cfg, compile.NewTracker(100), &StaticServer{}, screenshotter, logging.NewNop())
}

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := "<html><body><h1>hello</h1></body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestStaticServerServesTree(t *testing.T) {
	site := writeSite(t)
	url, stop, err := (&StaticServer{}).Serve(context.Background(), site)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	defer stop()

	resp, err := http.Get(url + "/index.html")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<html><body><h1>hello</h1></body></html>" {
		t.Errorf("body = %q", body)
	}
}

func TestCompileProducesScreenshotInstance(t *testing.T) {
	site := writeSite(t)
	c := newCompiler(t, &paintScreenshotter{})

	result := &scrape.Result{
		InstanceName:   "alice_site",
		AdditionalInfo: map[string]any{"language": "HTML"},
	}
	results, info, err := c.Compile(context.Background(), site, t.TempDir(), result)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Category != "html" {
		t.Errorf("category = %q", results[0].Category)
	}
	if results[0].DataPath != site {
		t.Errorf("data path = %q", results[0].DataPath)
	}
	if _, err := os.Stat(results[0].RenderingPath); err != nil {
		t.Errorf("screenshot missing: %v", err)
	}
	if info["category"] != "html" {
		t.Errorf("info = %v", info)
	}
}

func TestCompileRejectsBlankPage(t *testing.T) {
	site := writeSite(t)
	c := newCompiler(t, &paintScreenshotter{white: true})

	result := &scrape.Result{InstanceName: "blank_site"}
	_, _, err := c.Compile(context.Background(), site, t.TempDir(), result)
	if !errors.Is(err, services.ErrCompilation) {
		t.Fatalf("err = %v, want ErrCompilation", err)
	}
}

func TestCompileSkipsSaturatedCategory(t *testing.T) {
	site := writeSite(t)
	cfg := &config.Config{}
	tracker := compile.NewTracker(1)
	tracker.Resume("html", 1)
	c := New(cfg, tracker, &StaticServer{}, &paintScreenshotter{}, logging.NewNop())

	_, _, err := c.Compile(context.Background(), site, t.TempDir(), &scrape.Result{InstanceName: "x"})
	if !errors.Is(err, services.ErrCompilation) {
		t.Fatalf("err = %v, want ErrCompilation", err)
	}
}
