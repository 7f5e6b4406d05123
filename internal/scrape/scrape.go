// Package scrape defines the fetcher contract and the date-window machinery
// that turns an open-ended "give me N candidates" request into a sequence of
// bounded, resumable queries against rate-limited external sources.
package scrape

import (
	"context"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Result describes one discoverable candidate artifact. It carries enough
// metadata for the fetch filters to decide acceptance before any download
// happens.
type Result struct {
	// DownloadURL locates the raw artifact payload.
	DownloadURL string
	// InstanceName is a stable, filesystem-safe identifier. Two results with
	// the same name are duplicates by identity regardless of content.
	InstanceName string
	// Date is the publication or creation timestamp used for quota
	// windowing.
	Date time.Time
	// AdditionalInfo is an open key/value bag (language, author, page
	// count). Values that do not serialize to JSON are pruned at persist
	// time.
	AdditionalInfo map[string]any
}

// Fetcher is implemented once per external source.
type Fetcher interface {
	// Scrape returns up to count results, issuing as many windowed queries
	// as the remaining date range allows. It returns an error wrapping
	// services.ErrExhausted once the window floor is crossed, or
	// services.ErrScrape for transient upstream failures.
	Scrape(ctx context.Context, count int) ([]Result, error)
	// Download materializes the artifact for result under destDir, named
	// result.InstanceName. Failures wrap services.ErrDownload.
	Download(ctx context.Context, destDir string, result Result) error
	// NotifyStale tells the fetcher its current window is producing results
	// older than the acceptance boundary and must move. Returns an error
	// wrapping services.ErrExhausted when the window cannot move further.
	NotifyStale() error
}

// SafeInstanceName normalizes name into a single filesystem-safe path
// component: NFC-normalized, with separators, control characters, and other
// non-portable runes replaced by underscores.
func SafeInstanceName(name string) string {
	normalized := norm.NFC.String(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == 0:
			b.WriteRune('_')
		case unicode.IsControl(r) || unicode.IsSpace(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "_"
	}
	return out
}
