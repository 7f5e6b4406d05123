package imaging

import "image"

const inkEpsilon = 1e-6

// Default relative thresholds for page segmentation. A row counts as empty
// when its ink density is below inkEpsilon; a gap must span at least 1% of
// the page height to separate segments, and a segment must span at least 5%
// of the page height to be kept.
const (
	DefaultMinGapFraction     = 0.01
	DefaultMinSegmentFraction = 0.05
)

// Segment is a contiguous horizontal band of non-empty rows, [Start, End).
type Segment struct {
	Start int
	End   int
}

// rowInk returns the per-row ink density profile of img: 1 - mean gray,
// normalized to [0, 1], so a fully white row scores 0.
func rowInk(img image.Image) []float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	profile := make([]float64, bounds.Dy())
	if width == 0 {
		return profile
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		sum := 0
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sum += int(grayAt(img, x, y))
		}
		mean := float64(sum) / float64(width) / 255.0
		profile[y-bounds.Min.Y] = 1.0 - mean
	}
	return profile
}

// Segments splits img into horizontal bands of content separated by runs of
// near-empty rows. A new segment opens only after at least
// minGapFraction*height consecutive empty rows, and segments shorter than
// minSegmentFraction*height are dropped. This yields one band per musical
// system on a rendered score page.
func Segments(img image.Image, minGapFraction, minSegmentFraction float64) []Segment {
	profile := rowInk(img)
	height := len(profile)
	minGap := int(minGapFraction * float64(height))
	minRows := int(minSegmentFraction * float64(height))

	var segments []Segment
	emptyRun := 0
	start := -1
	for i := 1; i < height; i++ {
		if start >= 0 {
			if profile[i] < inkEpsilon {
				if i-start >= minRows {
					segments = append(segments, Segment{Start: start, End: i})
				}
				start = -1
			}
			continue
		}
		if profile[i] < inkEpsilon {
			emptyRun++
			continue
		}
		if emptyRun >= minGap {
			start = i
		}
		emptyRun = 0
	}
	if start >= 0 && height-start >= minRows {
		segments = append(segments, Segment{Start: start, End: height})
	}
	return segments
}
