// Package imslp fetches scanned sheet-music PDFs from an IMSLP-style
// MediaWiki file listing.
//
// The listing is not queryable by date range, so pages are walked in
// offset order and rows outside the configured date range are skipped
// locally. Exhaustion is reaching the end of the listing.
package imslp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"easel/internal/config"
	"easel/internal/logging"
	"easel/internal/scrape"
	"easel/internal/services"
)

// Fetcher walks the file listing and downloads score PDFs.
type Fetcher struct {
	baseURL  string
	pageSize int
	from     time.Time
	to       time.Time
	client   *http.Client
	logger   *slog.Logger

	offset  int
	backlog []scrape.Result
}

// New constructs a fetcher accepting scores uploaded within [from, to].
func New(cfg *config.Config, from, to time.Time, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		baseURL:  cfg.Imslp.BaseURL,
		pageSize: cfg.Imslp.PageSize,
		from:     from,
		to:       to,
		client:   &http.Client{Timeout: cfg.Timeout()},
		logger:   logging.NewComponentLogger(logger, "imslp"),
	}
}

// scoreRow is one file row parsed out of the listing table.
type scoreRow struct {
	href      string
	name      string
	pageCount int
	uploaded  time.Time
}

// Scrape implements scrape.Fetcher.
func (f *Fetcher) Scrape(ctx context.Context, count int) ([]scrape.Result, error) {
	for len(f.backlog) < count {
		rows, err := f.listPage(ctx, f.offset)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, services.Wrap(services.ErrExhausted, "imslp", "list",
				fmt.Sprintf("listing ended at offset %d", f.offset), nil)
		}
		f.offset += len(rows)

		accepted := 0
		for _, row := range rows {
			if row.uploaded.Before(f.from) || row.uploaded.After(f.to) {
				continue
			}
			f.backlog = append(f.backlog, scrape.Result{
				DownloadURL:  f.resolve(row.href),
				InstanceName: instanceName(row.name),
				Date:         row.uploaded,
				AdditionalInfo: map[string]any{
					"n_pages": row.pageCount,
					"file":    row.name,
				},
			})
			accepted++
		}
		f.logger.Debug("listing page consumed",
			logging.Int("offset", f.offset),
			logging.Int("rows", len(rows)),
			logging.Int("accepted", accepted),
		)
	}

	results := f.backlog[:count]
	f.backlog = f.backlog[count:]
	return results, nil
}

func (f *Fetcher) listPage(ctx context.Context, offset int) ([]scoreRow, error) {
	query := url.Values{}
	query.Set("title", "Special:ListFiles")
	query.Set("limit", strconv.Itoa(f.pageSize))
	query.Set("offset", strconv.Itoa(offset))
	endpoint := f.baseURL + "/index.php?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrScrape, "imslp", "list", endpoint, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrScrape, "imslp", "list", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrScrape, "imslp", "list",
			fmt.Sprintf("status %d from %s", resp.StatusCode, endpoint), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrScrape, "imslp", "read", endpoint, err)
	}
	return parseListing(body), nil
}

var (
	pageCountPattern = regexp.MustCompile(`(\d+)\s*pp`)
	datePattern      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// parseListing extracts PDF rows from the listing table. A row qualifies
// when it carries a .pdf link, a page count, and an upload date.
func parseListing(body []byte) []scoreRow {
	root, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	var rows []scoreRow
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "tr" {
			if row, ok := parseRow(node); ok {
				rows = append(rows, row)
			}
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return rows
}

func parseRow(row *html.Node) (scoreRow, bool) {
	var parsed scoreRow
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "a" {
			href := attr(node, "href")
			if strings.HasSuffix(strings.ToLower(href), ".pdf") && parsed.href == "" {
				parsed.href = href
				parsed.name = nodeText(node)
			}
		}
		if node.Type == html.TextNode {
			if match := pageCountPattern.FindStringSubmatch(node.Data); match != nil && parsed.pageCount == 0 {
				parsed.pageCount, _ = strconv.Atoi(match[1])
			}
			if match := datePattern.FindString(node.Data); match != "" && parsed.uploaded.IsZero() {
				if date, err := time.Parse("2006-01-02", match); err == nil {
					parsed.uploaded = date
				}
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(row)

	if parsed.href == "" || parsed.pageCount == 0 || parsed.uploaded.IsZero() {
		return scoreRow{}, false
	}
	if parsed.name == "" {
		parsed.name = parsed.href[strings.LastIndex(parsed.href, "/")+1:]
	}
	return parsed, true
}

func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func nodeText(node *html.Node) string {
	var builder strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			builder.WriteString(child.Data)
		}
	}
	return strings.TrimSpace(builder.String())
}

func (f *Fetcher) resolve(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return f.baseURL + href
}

// instanceName normalizes a listing name into the filename the artifact
// is downloaded as. Listing rows occasionally drop the extension even
// though the link targets a PDF.
func instanceName(name string) string {
	safe := scrape.SafeInstanceName(name)
	if !strings.HasSuffix(strings.ToLower(safe), ".pdf") {
		safe += ".pdf"
	}
	return safe
}

// Download implements scrape.Fetcher.
func (f *Fetcher) Download(ctx context.Context, destDir string, result scrape.Result) error {
	return scrape.DownloadFile(ctx, f.client, result.DownloadURL, destDir, result.InstanceName)
}

// NotifyStale implements scrape.Fetcher.
func (f *Fetcher) NotifyStale() error {
	f.backlog = f.backlog[:0]
	return nil
}
