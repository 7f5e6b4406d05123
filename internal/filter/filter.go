// Package filter defines the three filter stages a candidate passes
// through: fetch filters on scrape results, file filters on downloaded
// trees, and rendering filters on compiled images.
//
// A filter answers "keep this?"; returning an error means the filter
// itself could not run, not that the candidate was rejected.
package filter

import (
	"easel/internal/scrape"
)

// FetchFilter screens a scrape result before anything is downloaded.
type FetchFilter interface {
	// Name identifies the filter in logs and metadata.
	Name() string
	// Filter reports whether the result should be kept.
	Filter(result scrape.Result) (bool, error)
}

// FileFilter screens a downloaded instance on disk. The returned info
// map is merged into the instance metadata whether or not it is kept.
type FileFilter interface {
	Name() string
	Filter(path string) (bool, map[string]any, error)
}

// RenderingFilter screens a compiled rendering. Accepting an image may
// mutate filter state, so checking and accepting are a single call.
type RenderingFilter interface {
	Name() string
	CheckAndAccept(imagePath string) (bool, map[string]any, error)
}

// StaleMarker tags fetch filters whose rejections are date-driven: when
// one rejects, the fetcher's current window is played out and should be
// told so.
type StaleMarker interface {
	MarksStale()
}

// TriggersStaleNotice reports whether a rejection by f means the
// fetcher's current date window has gone stale.
func TriggersStaleNotice(f FetchFilter) bool {
	_, ok := f.(StaleMarker)
	return ok
}
