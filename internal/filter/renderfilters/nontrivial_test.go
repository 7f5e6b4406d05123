package renderfilters

import (
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"easel/internal/config"
	"easel/internal/imaging"
)

func filterUnderTest() *Nontrivial {
	return NewNontrivial(config.Filters{
		HashSizeBackground:     8,
		HashSizeDetail:         5,
		MaxBackgroundPercent:   95.0,
		BackgroundSplitPercent: 50.0,
	})
}

func savePNG(t *testing.T, name string, paint func(x, y int) color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, paint(x, y))
		}
	}
	path := filepath.Join(t.TempDir(), name)
	if err := imaging.SavePNG(path, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRejectsWhiteImage(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	black := color.RGBA{0, 0, 0, 255}
	path := savePNG(t, "white.png", func(x, y int) color.Color {
		if x == 0 && y == 0 {
			return black
		}
		return white
	})

	keep, info, err := filterUnderTest().CheckAndAccept(path)
	if err != nil {
		t.Fatalf("CheckAndAccept: %v", err)
	}
	if keep {
		t.Fatalf("white image kept")
	}
	if info["reason"] != "white image" {
		t.Errorf("reason = %v", info["reason"])
	}
	if _, ok := info["white_pixels_ratio"]; !ok {
		t.Errorf("missing white_pixels_ratio")
	}
}

func TestRejectsDuplicateImage(t *testing.T) {
	paint := func(x, y int) color.Color {
		if (x/8+y/8)%2 == 0 {
			return color.RGBA{0, 0, 0, 255}
		}
		return color.RGBA{255, 255, 255, 255}
	}
	first := savePNG(t, "a.png", paint)
	second := savePNG(t, "b.png", paint)

	f := filterUnderTest()
	keep, _, err := f.CheckAndAccept(first)
	if err != nil || !keep {
		t.Fatalf("first image: keep=%v err=%v", keep, err)
	}
	keep, info, err := f.CheckAndAccept(second)
	if err != nil {
		t.Fatalf("CheckAndAccept: %v", err)
	}
	if keep {
		t.Fatalf("duplicate image kept")
	}
	if info["reason"] != "similar image" {
		t.Errorf("reason = %v", info["reason"])
	}
}

func TestRejectsConstantImage(t *testing.T) {
	gray := color.RGBA{120, 120, 120, 255}
	path := savePNG(t, "gray.png", func(x, y int) color.Color { return gray })

	keep, info, err := filterUnderTest().CheckAndAccept(path)
	if err != nil {
		t.Fatalf("CheckAndAccept: %v", err)
	}
	if keep {
		t.Fatalf("constant image kept")
	}
	if info["reason"] != "constant image" {
		t.Errorf("reason = %v", info["reason"])
	}
}

func TestAcceptsDistinctImages(t *testing.T) {
	leftBlack := savePNG(t, "left.png", func(x, y int) color.Color {
		if x < 32 {
			return color.RGBA{0, 0, 0, 255}
		}
		return color.RGBA{255, 255, 255, 255}
	})
	diagonal := savePNG(t, "diag.png", func(x, y int) color.Color {
		if (x+y)%3 == 0 {
			return color.RGBA{0, 0, 0, 255}
		}
		return color.RGBA{255, 255, 255, 255}
	})

	f := filterUnderTest()
	for _, path := range []string{leftBlack, diagonal} {
		keep, info, err := f.CheckAndAccept(path)
		if err != nil {
			t.Fatalf("CheckAndAccept(%s): %v", path, err)
		}
		if !keep {
			t.Errorf("distinct image rejected: %v", info)
		}
	}
}

func TestConcurrentDuplicatesAcceptOnce(t *testing.T) {
	paint := func(x, y int) color.Color {
		if (x/8+y/8)%2 == 0 {
			return color.RGBA{0, 0, 0, 255}
		}
		return color.RGBA{255, 255, 255, 255}
	}
	path := savePNG(t, "same.png", paint)

	f := filterUnderTest()
	const callers = 8
	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keep, _, err := f.CheckAndAccept(path)
			if err != nil {
				t.Errorf("CheckAndAccept: %v", err)
				return
			}
			if keep {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := accepted.Load(); got != 1 {
		t.Fatalf("accepted %d duplicates, want exactly 1", got)
	}
}
