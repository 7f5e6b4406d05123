// Package fetchfilters holds the filters applied to scrape results
// before download: date floors, per-date quotas, and identity dedup.
package fetchfilters

import (
	"fmt"
	"sync"
	"time"

	"easel/internal/scrape"
	"easel/internal/services"
)

// AfterDate rejects results dated before the cutoff. Its rejections mean
// the fetcher window has drifted too far back, so it marks batches stale.
type AfterDate struct {
	cutoff time.Time
}

// NewAfterDate builds a filter keeping results dated on or after cutoff.
func NewAfterDate(cutoff time.Time) *AfterDate {
	return &AfterDate{cutoff: cutoff}
}

func (f *AfterDate) Name() string { return "after_date" }

func (f *AfterDate) Filter(result scrape.Result) (bool, error) {
	return !result.Date.Before(f.cutoff), nil
}

func (f *AfterDate) MarksStale() {}

// PerDateQuota keeps at most max results per calendar day. Shared across
// runner goroutines, so counting is mutex guarded.
type PerDateQuota struct {
	max int

	mu   sync.Mutex
	seen map[string]int
}

// NewPerDateQuota builds a filter admitting the first max results per day.
func NewPerDateQuota(max int) *PerDateQuota {
	return &PerDateQuota{max: max, seen: make(map[string]int)}
}

func (f *PerDateQuota) Name() string { return "per_date_quota" }

func (f *PerDateQuota) Filter(result scrape.Result) (bool, error) {
	key := result.Date.Format("2006-01-02")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[key] >= f.max {
		return false, nil
	}
	f.seen[key]++
	return true, nil
}

// Identity rejects results already seen in this run, by instance name and
// by author. Shared across runner goroutines.
type Identity struct {
	mu        sync.Mutex
	instances map[string]struct{}
	authors   map[string]struct{}
	byAuthor  bool
}

// NewIdentity builds an identity filter. When byAuthor is set, results
// must carry a "user" entry in AdditionalInfo and at most one result per
// author is kept.
func NewIdentity(byAuthor bool) *Identity {
	return &Identity{
		instances: make(map[string]struct{}),
		authors:   make(map[string]struct{}),
		byAuthor:  byAuthor,
	}
}

func (f *Identity) Name() string { return "identity" }

// Observe marks an instance name as already collected without running
// the filter, used when resuming from a previous run's ledger.
func (f *Identity) Observe(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances[name] = struct{}{}
}

func (f *Identity) Filter(result scrape.Result) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, dup := f.instances[result.InstanceName]; dup {
		return false, nil
	}

	if f.byAuthor {
		user, ok := result.AdditionalInfo["user"].(string)
		if !ok || user == "" {
			return false, services.Wrap(services.ErrFilter, "identity", "filter",
				fmt.Sprintf("result %s carries no user", result.InstanceName), nil)
		}
		if _, dup := f.authors[user]; dup {
			return false, nil
		}
		f.authors[user] = struct{}{}
	}

	f.instances[result.InstanceName] = struct{}{}
	return true, nil
}
