// Package github fetches GitHub Pages repositories through the search API
// and clones them for compilation.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"easel/internal/config"
	"easel/internal/logging"
	"easel/internal/scrape"
	"easel/internal/services"
)

// Fetcher searches for github.io repositories in one language, walking the
// configured creation-date range backward.
type Fetcher struct {
	apiBase  string
	token    string
	language string
	maxKB    int
	pageSize int
	client   *http.Client
	logger   *slog.Logger

	window  *scrape.Window
	backlog []scrape.Result
}

// New constructs a fetcher over [from, to] for cfg.GitHub.Language.
func New(cfg *config.Config, from, to time.Time, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		apiBase:  cfg.GitHub.APIBase,
		token:    cfg.GitHub.Token,
		language: cfg.GitHub.Language,
		maxKB:    cfg.GitHub.MaxSizeKB,
		pageSize: cfg.GitHub.PageSize,
		client:   &http.Client{Timeout: cfg.Timeout()},
		logger:   logging.NewComponentLogger(logger, "github"),
		window:   scrape.NewWindow(from, to),
	}
}

type searchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		FullName  string `json:"full_name"`
		CloneURL  string `json:"clone_url"`
		CreatedAt string `json:"created_at"`
		Size      int    `json:"size"`
		Language  string `json:"language"`
		Owner     struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"items"`
}

// Scrape implements scrape.Fetcher.
func (f *Fetcher) Scrape(ctx context.Context, count int) ([]scrape.Result, error) {
	for len(f.backlog) < count {
		from, to, err := f.window.Next(count - len(f.backlog))
		if err != nil {
			return nil, err
		}

		repos, err := f.search(ctx, from, to)
		if err != nil {
			return nil, err
		}
		f.window.Observe(from, to, len(repos))
		if len(repos) == 0 {
			return nil, services.Wrap(services.ErrScrape, "github", "search",
				fmt.Sprintf("no repositories created %s..%s", from.Format("2006-01-02"), to.Format("2006-01-02")), nil)
		}
		f.backlog = append(f.backlog, repos...)
		f.logger.Debug("window consumed",
			logging.Time("from", from),
			logging.Time("to", to),
			logging.Int("repositories", len(repos)),
			logging.Float64("rate_per_day", f.window.RatePerDay()),
		)
	}

	results := f.backlog[:count]
	f.backlog = f.backlog[count:]
	return results, nil
}

func (f *Fetcher) search(ctx context.Context, from, to time.Time) ([]scrape.Result, error) {
	terms := []string{
		"github.io in:name",
		fmt.Sprintf("created:%s..%s", from.Format("2006-01-02"), to.Format("2006-01-02")),
		"language:" + f.language,
		fmt.Sprintf("size:<=%d", f.maxKB),
	}
	query := url.Values{}
	query.Set("q", strings.Join(terms, " "))
	query.Set("per_page", fmt.Sprint(f.pageSize))
	query.Set("sort", "updated")
	query.Set("order", "desc")
	endpoint := f.apiBase + "/search/repositories?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrScrape, "github", "search", endpoint, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrScrape, "github", "search", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return nil, services.Wrap(services.ErrScrape, "github", "search",
			fmt.Sprintf("rate limited with status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrScrape, "github", "search",
			fmt.Sprintf("status %d from %s", resp.StatusCode, endpoint), nil)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, services.Wrap(services.ErrScrape, "github", "parse", endpoint, err)
	}

	results := make([]scrape.Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		created, err := time.Parse(time.RFC3339, item.CreatedAt)
		if err != nil {
			continue
		}
		results = append(results, scrape.Result{
			DownloadURL:  item.CloneURL,
			InstanceName: scrape.SafeInstanceName(item.FullName),
			Date:         created,
			AdditionalInfo: map[string]any{
				"user":      item.Owner.Login,
				"repo":      item.FullName,
				"language":  item.Language,
				"size_kb":   item.Size,
				"clone_url": item.CloneURL,
			},
		})
	}
	return results, nil
}

// Download implements scrape.Fetcher with a shallow clone into destDir.
func (f *Fetcher) Download(ctx context.Context, destDir string, result scrape.Result) error {
	target := filepath.Join(destDir, result.InstanceName)
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", "--quiet", result.DownloadURL, target)
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrDownload, "github", "clone",
			fmt.Sprintf("%s: %s", result.DownloadURL, strings.TrimSpace(string(output))), err)
	}
	return nil
}

// NotifyStale implements scrape.Fetcher.
func (f *Fetcher) NotifyStale() error {
	f.backlog = f.backlog[:0]
	return nil
}
