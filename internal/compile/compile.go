// Package compile defines the compiler contract shared by the LaTeX,
// webpage, and sheet-music backends, plus the per-category progress
// tracking that steers them.
package compile

import (
	"context"
	"sync"

	"easel/internal/scrape"
)

// Result is one rendered instance produced from a source document.
type Result struct {
	// RenderingPath is the screenshot or rendered page image.
	RenderingPath string
	// Category partitions instances inside a collection (equation,
	// figure, webpage, music, ...).
	Category string
	// DataPath holds the ground-truth structure: a source file, or a
	// directory that will be archived on persist.
	DataPath string
	// Text is the ground-truth text when the structure is textual.
	Text string
	// AssetsPaths are files referenced by the structure, relative to
	// the instance's assets directory.
	AssetsPaths []string
}

// Compiler turns one downloaded instance into zero or more rendered
// results. Info entries are merged into the instance metadata.
type Compiler interface {
	Name() string
	Compile(ctx context.Context, dataPath, destPath string, result *scrape.Result) ([]Result, map[string]any, error)
}

// Tracker counts accepted instances per category against a common
// target. It is shared between a runner and its compiler: the compiler
// skips saturated categories, the runner acknowledges after persist.
type Tracker struct {
	target int

	mu     sync.Mutex
	counts map[string]int
}

// NewTracker builds a tracker with the given per-category target.
func NewTracker(target int) *Tracker {
	return &Tracker{target: target, counts: make(map[string]int)}
}

// Target returns the per-category target.
func (t *Tracker) Target() int { return t.target }

// Acknowledge records one accepted instance and returns the new count.
func (t *Tracker) Acknowledge(category string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[category]++
	return t.counts[category]
}

// Resume seeds a category count, used when continuing a previous run.
func (t *Tracker) Resume(category string, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if count > t.counts[category] {
		t.counts[category] = count
	}
}

// Count returns the current count for category.
func (t *Tracker) Count(category string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[category]
}

// Saturated reports whether category has reached the target.
func (t *Tracker) Saturated(category string) bool {
	return t.Count(category) >= t.target
}

// Done reports whether every listed category has reached the target.
// Categories never seen count as zero.
func (t *Tracker) Done(categories []string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, category := range categories {
		if t.counts[category] < t.target {
			return false
		}
	}
	return len(categories) > 0
}

// Counts returns a copy of the per-category counts.
func (t *Tracker) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for category, count := range t.counts {
		out[category] = count
	}
	return out
}
