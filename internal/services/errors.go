// Package services defines the shared error taxonomy for pipeline components.
//
// Components wrap failures with one of the exported sentinel markers so the
// collector can classify an error without knowing which component produced
// it: transient scrape failures are retried, exhaustion errors end the run,
// and per-candidate filter/compile failures cause a skip.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrScrape marks a transient source query failure (HTTP error, empty or
	// invalid page). The collector sleeps and retries.
	ErrScrape = errors.New("scrape error")
	// ErrExhausted marks a fetcher whose date window has moved past the
	// configured floor. Fatal for the run the fetcher feeds.
	ErrExhausted = errors.New("source exhausted")
	// ErrDownload marks a failed artifact transfer. Skips the candidate.
	ErrDownload = errors.New("download error")
	// ErrFilter marks a filter that could not render a decision, for example
	// missing required metadata or an unreachable scoring service. Distinct
	// from a rejection: rejections are ordinary return values.
	ErrFilter = errors.New("filter error")
	// ErrCompilation marks an artifact that could not be rendered at all.
	ErrCompilation = errors.New("compilation error")
	// ErrConfiguration marks invalid or incomplete configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrScrape
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the collector should sleep and retry after err
// instead of ending the run.
func Retryable(err error) bool {
	return errors.Is(err, ErrScrape) && !errors.Is(err, ErrExhausted)
}

// SkipsCandidate reports whether err aborts only the current candidate.
func SkipsCandidate(err error) bool {
	return errors.Is(err, ErrDownload) || errors.Is(err, ErrFilter) || errors.Is(err, ErrCompilation)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "component failure"
	}
	return strings.Join(parts, ": ")
}
