package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGitHub()
	c.normalizeArxiv()
	c.normalizeImslp()
	c.normalizeToxicity()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.TmpDir, err = expandPath(c.Paths.TmpDir); err != nil {
		return fmt.Errorf("paths.tmp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGitHub() {
	if c.GitHub.Token == "" {
		if value, ok := os.LookupEnv("GITHUB_TOKEN"); ok {
			c.GitHub.Token = value
		}
	}
	c.GitHub.APIBase = strings.TrimRight(strings.TrimSpace(c.GitHub.APIBase), "/")
	if c.GitHub.APIBase == "" {
		c.GitHub.APIBase = defaultGitHubAPIBase
	}
}

func (c *Config) normalizeArxiv() {
	c.Arxiv.OAIBase = strings.TrimSpace(c.Arxiv.OAIBase)
	if c.Arxiv.OAIBase == "" {
		c.Arxiv.OAIBase = defaultArxivOAIBase
	}
	c.Arxiv.EPrintBase = strings.TrimSpace(c.Arxiv.EPrintBase)
	if c.Arxiv.EPrintBase == "" {
		c.Arxiv.EPrintBase = defaultEPrintBase
	}
}

func (c *Config) normalizeImslp() {
	c.Imslp.BaseURL = strings.TrimRight(strings.TrimSpace(c.Imslp.BaseURL), "/")
	if c.Imslp.BaseURL == "" {
		c.Imslp.BaseURL = defaultImslpBaseURL
	}
	if c.Imslp.PageSize <= 0 {
		c.Imslp.PageSize = 100
	}
}

func (c *Config) normalizeToxicity() {
	if c.Toxicity.APIKey == "" {
		if value, ok := os.LookupEnv("PERSPECTIVE_API_KEY"); ok {
			c.Toxicity.APIKey = value
		}
	}
	c.Toxicity.Endpoint = strings.TrimSpace(c.Toxicity.Endpoint)
	if c.Toxicity.Endpoint == "" {
		c.Toxicity.Endpoint = defaultToxicityAPI
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = 10
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// ExpandPath resolves ~ and relative segments in a user-supplied path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
