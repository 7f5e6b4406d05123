// Package imaging provides the pixel-level analysis shared by the rendering
// filter and the compilers: background ratios, dominant-color detection, and
// row-density segmentation of rendered pages.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// Load decodes the image at path.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// SavePNG encodes img as PNG at path.
func SavePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode png %s: %w", path, err)
	}
	return file.Close()
}

// grayAt returns the 8-bit mean of the color channels at (x, y).
func grayAt(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(((r >> 8) + (g >> 8) + (b >> 8)) / 3)
}

// WhiteRatio returns the percentage of pixels whose channel mean is pure
// white.
func WhiteRatio(img image.Image) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}
	white := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if grayAt(img, x, y) == 255 {
				white++
			}
		}
	}
	return float64(white) / float64(total) * 100
}

// MostFrequentColorRatio returns the percentage of pixels covered by the
// single most frequent color.
func MostFrequentColorRatio(img image.Image) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}
	counts := make(map[color.RGBA]int)
	max := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			key := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
			counts[key]++
			if counts[key] > max {
				max = counts[key]
			}
		}
	}
	return float64(max) / float64(total) * 100
}

// CropRows returns the horizontal band [top, bottom) of img.
func CropRows(img image.Image, top, bottom int) image.Image {
	bounds := img.Bounds()
	rect := image.Rect(bounds.Min.X, bounds.Min.Y+top, bounds.Max.X, bounds.Min.Y+bottom)
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			out.Set(x, y, img.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return out
}

// ContentBounds returns the smallest rectangle containing all non-white
// pixels, or false when the image is entirely white.
func ContentBounds(img image.Image) (image.Rectangle, bool) {
	bounds := img.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if grayAt(img, x, y) != 255 {
				if x < minX {
					minX = x
				}
				if y < minY {
					minY = y
				}
				if x > maxX {
					maxX = x
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// Crop returns the sub-image of img covered by rect.
func Crop(img image.Image, rect image.Rectangle) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			out.Set(x, y, img.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return out
}
