package webpagec

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"easel/internal/services"
)

// SiteServer serves a site tree over HTTP and returns its base URL plus
// a stop function.
type SiteServer interface {
	Serve(ctx context.Context, siteDir string) (string, func() error, error)
}

// Screenshotter captures the page at url into a PNG at destPath.
type Screenshotter interface {
	Capture(ctx context.Context, url, destPath string) error
}

// StaticServer serves the tree directly. When the tree carries a
// _config.yml and jekyll is installed, the site is built first and the
// generated _site directory is served instead.
type StaticServer struct {
	// Port to bind, an ephemeral port when zero.
	Port int
}

// Serve implements SiteServer.
func (s *StaticServer) Serve(ctx context.Context, siteDir string) (string, func() error, error) {
	root := siteDir
	if built, ok := buildJekyll(ctx, siteDir); ok {
		root = built
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.Port))
	if err != nil {
		return "", nil, services.Wrap(services.ErrCompilation, "webpage", "serve", "bind", err)
	}

	server := &http.Server{Handler: http.FileServer(http.Dir(root))}
	go server.Serve(listener)

	stop := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
	return "http://" + listener.Addr().String(), stop, nil
}

// buildJekyll attempts a jekyll build and reports whether a generated
// site exists to serve.
func buildJekyll(ctx context.Context, siteDir string) (string, bool) {
	if _, err := os.Stat(filepath.Join(siteDir, "_config.yml")); err != nil {
		return "", false
	}
	if _, err := exec.LookPath("jekyll"); err != nil {
		return "", false
	}
	built := filepath.Join(siteDir, "_site")
	cmd := exec.CommandContext(ctx, "jekyll", "build", "--source", siteDir, "--destination", built)
	if err := cmd.Run(); err != nil {
		return "", false
	}
	if _, err := os.Stat(filepath.Join(built, "index.html")); err != nil {
		return "", false
	}
	return built, true
}

// ChromeScreenshotter captures pages with a headless Chromium.
type ChromeScreenshotter struct {
	// Binary name, "chromium" when empty.
	Binary string
	// Viewport, 1280x960 when zero.
	Width  int
	Height int
}

// Capture implements Screenshotter.
func (c *ChromeScreenshotter) Capture(ctx context.Context, url, destPath string) error {
	binary := c.Binary
	if binary == "" {
		binary = "chromium"
	}
	width, height := c.Width, c.Height
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 960
	}

	cmd := exec.CommandContext(ctx, binary,
		"--headless", "--disable-gpu", "--hide-scrollbars",
		fmt.Sprintf("--window-size=%d,%d", width, height),
		"--screenshot="+destPath,
		url)
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrCompilation, "webpage", "screenshot",
			strings.TrimSpace(string(output)), err)
	}
	if _, err := os.Stat(destPath); err != nil {
		return services.Wrap(services.ErrCompilation, "webpage", "screenshot",
			"no image produced for "+url, err)
	}
	return nil
}
