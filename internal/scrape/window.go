package scrape

import (
	"math"
	"time"

	"easel/internal/services"
)

const (
	// initialRatePerDay seeds the width estimate before any query has been
	// observed. The exact value is a tunable; it only affects the first
	// window.
	initialRatePerDay = 50.0
	// rateSmoothing is the exponential moving average weight given to the
	// most recent observation.
	rateSmoothing = 0.5
	// minRatePerDay keeps the width computation bounded for very sparse
	// sources.
	minRatePerDay = 0.1

	minWindowDays = 1
	maxWindowDays = 30
)

// Window walks a date range strictly backward in bounded, non-overlapping
// steps. Each call to Next yields one query window sized from an adaptive
// estimate of how many artifacts the source publishes per day, so query cost
// stays roughly proportional to the number of results needed rather than to
// the span of the full range.
//
// Windows are never re-issued: the upper bound of the next window is always
// the lower bound of the previous one. Crossing the configured floor is the
// only exhaustion condition; an empty window is not.
type Window struct {
	floor      time.Time
	upper      time.Time
	ratePerDay float64
}

// NewWindow creates a window walker over [floor, before].
func NewWindow(floor, before time.Time) *Window {
	return &Window{
		floor:      floor,
		upper:      before,
		ratePerDay: initialRatePerDay,
	}
}

// Next returns the bounds of the next query window, sized to yield roughly
// needed results, and consumes it. It fails with services.ErrExhausted once
// the next window would extend past the floor.
func (w *Window) Next(needed int) (from, to time.Time, err error) {
	if needed < 1 {
		needed = 1
	}
	days := int(math.Ceil(float64(needed) / w.ratePerDay))
	if days < minWindowDays {
		days = minWindowDays
	}
	if days > maxWindowDays {
		days = maxWindowDays
	}

	to = w.upper
	from = to.AddDate(0, 0, -days)
	if from.Before(w.floor) {
		return time.Time{}, time.Time{}, services.Wrap(
			services.ErrExhausted, "window", "next",
			"no more results available for the configured date range", nil)
	}
	w.upper = from
	return from, to, nil
}

// Observe feeds back the result count of the window [from, to] so the next
// width estimate tracks the source's observed density.
func (w *Window) Observe(from, to time.Time, results int) {
	days := to.Sub(from).Hours() / 24
	if days <= 0 {
		return
	}
	observed := float64(results) / days
	w.ratePerDay = (1-rateSmoothing)*w.ratePerDay + rateSmoothing*observed
	if w.ratePerDay < minRatePerDay {
		w.ratePerDay = minRatePerDay
	}
}

// RatePerDay exposes the current density estimate.
func (w *Window) RatePerDay() float64 {
	return w.ratePerDay
}
