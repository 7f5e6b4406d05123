// Package renderfilters holds the filters applied to compiled renderings
// before an instance is persisted.
package renderfilters

import (
	"sync"

	"github.com/corona10/goimagehash"

	"easel/internal/config"
	"easel/internal/imaging"
	"easel/internal/services"
)

// Nontrivial rejects renderings that carry no usable signal: blank
// pages, near-duplicates of an already accepted rendering, and
// single-color images. Accepting a rendering records its perceptual
// hash; the seen set is mutex guarded so concurrent callers agree on
// which rendering claimed a hash first.
type Nontrivial struct {
	maxBackground   float64
	backgroundSplit float64
	hashSizeBright  int
	hashSizeDetail  int

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewNontrivial builds the filter from the configured thresholds.
func NewNontrivial(cfg config.Filters) *Nontrivial {
	return &Nontrivial{
		maxBackground:   cfg.MaxBackgroundPercent,
		backgroundSplit: cfg.BackgroundSplitPercent,
		hashSizeBright:  cfg.HashSizeBackground,
		hashSizeDetail:  cfg.HashSizeDetail,
		seen:            make(map[string]struct{}),
	}
}

func (f *Nontrivial) Name() string { return "nontrivial" }

// CheckAndAccept implements filter.RenderingFilter.
//
// Bright images hash at a coarser size than detailed ones: a mostly
// white page needs more cells before sparse content separates two
// different renderings.
func (f *Nontrivial) CheckAndAccept(imagePath string) (bool, map[string]any, error) {
	img, err := imaging.Load(imagePath)
	if err != nil {
		return false, nil, services.Wrap(services.ErrFilter, "nontrivial", "load", imagePath, err)
	}

	whiteRatio := imaging.WhiteRatio(img)
	if whiteRatio > f.maxBackground {
		return false, map[string]any{
			"reason":             "white image",
			"white_pixels_ratio": whiteRatio,
		}, nil
	}

	hashSize := f.hashSizeDetail
	if whiteRatio > f.backgroundSplit {
		hashSize = f.hashSizeBright
	}
	hash, err := goimagehash.ExtAverageHash(img, hashSize, hashSize)
	if err != nil {
		return false, nil, services.Wrap(services.ErrFilter, "nontrivial", "hash", imagePath, err)
	}
	key := hash.ToString()

	frequent := imaging.MostFrequentColorRatio(img)
	if frequent > f.maxBackground {
		return false, map[string]any{
			"reason":                    "constant image",
			"most_frequent_color_ratio": frequent,
		}, nil
	}

	// Check and claim under one lock so two renderings with the same
	// hash cannot both be accepted.
	f.mu.Lock()
	_, duplicate := f.seen[key]
	if !duplicate {
		f.seen[key] = struct{}{}
	}
	f.mu.Unlock()
	if duplicate {
		return false, map[string]any{
			"reason": "similar image",
			"hash":   key,
		}, nil
	}
	return true, map[string]any{"hash": key}, nil
}
