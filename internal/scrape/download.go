package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"easel/internal/services"
)

// DownloadFile streams url into destDir/name using client. The destination
// directory must already exist; a partial file is removed on failure.
func DownloadFile(ctx context.Context, client *http.Client, url, destDir, name string) error {
	if client == nil {
		client = http.DefaultClient
	}
	if _, err := os.Stat(destDir); err != nil {
		return services.Wrap(services.ErrDownload, "download", "stat", fmt.Sprintf("destination %s does not exist", destDir), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrDownload, "download", "request", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrDownload, "download", "get", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrDownload, "download", "get", fmt.Sprintf("%s returned status %d", url, resp.StatusCode), nil)
	}

	dest := filepath.Join(destDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrDownload, "download", "create", dest, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return services.Wrap(services.ErrDownload, "download", "write", dest, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrDownload, "download", "close", dest, err)
	}
	return nil
}
