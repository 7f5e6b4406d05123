// Package arxiv fetches paper source archives from the arXiv OAI-PMH
// endpoint, walking the configured date range backward in adaptive windows.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"easel/internal/config"
	"easel/internal/logging"
	"easel/internal/scrape"
	"easel/internal/services"
)

// Fetcher lists arXiv records for one subcategory and downloads their
// e-print source archives.
type Fetcher struct {
	oaiBase     string
	eprintBase  string
	subcategory string
	client      *http.Client
	logger      *slog.Logger

	window  *scrape.Window
	backlog []scrape.Result
}

// New constructs a fetcher over [from, to] for cfg.Arxiv.Subcategory.
func New(cfg *config.Config, from, to time.Time, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		oaiBase:     cfg.Arxiv.OAIBase,
		eprintBase:  cfg.Arxiv.EPrintBase,
		subcategory: cfg.Arxiv.Subcategory,
		client:      &http.Client{Timeout: cfg.Timeout()},
		logger:      logging.NewComponentLogger(logger, "arxiv"),
		window:      scrape.NewWindow(from, to),
	}
}

type oaiResponse struct {
	XMLName     xml.Name    `xml:"OAI-PMH"`
	Error       oaiError    `xml:"error"`
	ListRecords listRecords `xml:"ListRecords"`
}

type oaiError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

type listRecords struct {
	Records []oaiRecord `xml:"record"`
}

type oaiRecord struct {
	Metadata struct {
		ArXiv struct {
			ID         string `xml:"id"`
			Created    string `xml:"created"`
			Title      string `xml:"title"`
			Categories string `xml:"categories"`
			Abstract   string `xml:"abstract"`
		} `xml:"arXiv"`
	} `xml:"metadata"`
}

// Scrape implements scrape.Fetcher.
func (f *Fetcher) Scrape(ctx context.Context, count int) ([]scrape.Result, error) {
	for len(f.backlog) < count {
		from, to, err := f.window.Next(count - len(f.backlog))
		if err != nil {
			return nil, err
		}

		records, err := f.listRecords(ctx, from, to)
		if err != nil {
			return nil, err
		}
		f.window.Observe(from, to, len(records))
		if len(records) == 0 {
			// Usually a rate-limit response disguised as an empty page.
			return nil, services.Wrap(services.ErrScrape, "arxiv", "list",
				fmt.Sprintf("empty record page for %s..%s", from.Format("2006-01-02"), to.Format("2006-01-02")), nil)
		}
		f.backlog = append(f.backlog, records...)
		f.logger.Debug("window consumed",
			logging.Time("from", from),
			logging.Time("to", to),
			logging.Int("records", len(records)),
			logging.Float64("rate_per_day", f.window.RatePerDay()),
		)
	}

	results := f.backlog[:count]
	f.backlog = f.backlog[count:]
	return results, nil
}

func (f *Fetcher) listRecords(ctx context.Context, from, to time.Time) ([]scrape.Result, error) {
	query := url.Values{}
	query.Set("verb", "ListRecords")
	query.Set("metadataPrefix", "arXiv")
	query.Set("set", f.subcategory)
	query.Set("from", from.Format("2006-01-02"))
	query.Set("until", to.Format("2006-01-02"))
	endpoint := f.oaiBase + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrScrape, "arxiv", "list", endpoint, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrScrape, "arxiv", "list", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrScrape, "arxiv", "list",
			fmt.Sprintf("status %d from %s", resp.StatusCode, endpoint), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrScrape, "arxiv", "read", endpoint, err)
	}

	var parsed oaiResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, services.Wrap(services.ErrScrape, "arxiv", "parse", endpoint, err)
	}
	if parsed.Error.Code != "" && parsed.Error.Code != "noRecordsMatch" {
		return nil, services.Wrap(services.ErrScrape, "arxiv", "list",
			fmt.Sprintf("oai error %s: %s", parsed.Error.Code, parsed.Error.Message), nil)
	}

	results := make([]scrape.Result, 0, len(parsed.ListRecords.Records))
	for _, record := range parsed.ListRecords.Records {
		meta := record.Metadata.ArXiv
		if meta.ID == "" {
			continue
		}
		created, err := time.Parse("2006-01-02", meta.Created)
		if err != nil {
			continue
		}
		results = append(results, scrape.Result{
			DownloadURL:  f.eprintBase + meta.ID,
			InstanceName: scrape.SafeInstanceName(meta.ID) + ".tar.gz",
			Date:         created,
			AdditionalInfo: map[string]any{
				"arxiv_id":   meta.ID,
				"title":      meta.Title,
				"categories": meta.Categories,
			},
		})
	}
	return results, nil
}

// Download implements scrape.Fetcher.
func (f *Fetcher) Download(ctx context.Context, destDir string, result scrape.Result) error {
	return scrape.DownloadFile(ctx, f.client, result.DownloadURL, destDir, result.InstanceName)
}

// NotifyStale implements scrape.Fetcher. Buffered results already known to
// be stale are dropped; the window itself only moves on the next query.
func (f *Fetcher) NotifyStale() error {
	f.backlog = f.backlog[:0]
	return nil
}
