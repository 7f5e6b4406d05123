package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	TmpDir    string `toml:"tmp_dir"`
	LogDir    string `toml:"log_dir"`
}

// Collect contains quota and pacing configuration for a run.
type Collect struct {
	NumInstances    int    `toml:"num_instances"`
	BatchSize       int    `toml:"batch_size"`
	MaxPerDate      int    `toml:"max_per_date"`
	DateFrom        string `toml:"date_from"`
	DateTo          string `toml:"date_to"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	RetrySeconds    int    `toml:"retry_seconds"`
	CleanupRejected bool   `toml:"cleanup_rejected"`
}

// GitHub contains configuration for the repository search fetcher.
type GitHub struct {
	Token     string `toml:"token"`
	APIBase   string `toml:"api_base"`
	Language  string `toml:"language"`
	MaxSizeKB int    `toml:"max_size_kb"`
	PageSize  int    `toml:"page_size"`
}

// Arxiv contains configuration for the paper source fetcher.
type Arxiv struct {
	OAIBase     string `toml:"oai_base"`
	EPrintBase  string `toml:"eprint_base"`
	Subcategory string `toml:"subcategory"`
}

// Imslp contains configuration for the score fetcher.
type Imslp struct {
	BaseURL  string `toml:"base_url"`
	PageSize int    `toml:"page_size"`
}

// Toxicity contains configuration for the text scoring service.
type Toxicity struct {
	Enabled                   bool    `toml:"enabled"`
	APIKey                    string  `toml:"api_key"`
	Endpoint                  string  `toml:"endpoint"`
	ToxicityThreshold         float64 `toml:"toxicity_threshold"`
	SexuallyExplicitThreshold float64 `toml:"sexually_explicit_threshold"`
}

// Filters contains thresholds for the structural and rendering filters.
type Filters struct {
	MinLinesCode           int     `toml:"min_lines_code"`
	MaxFilesCode           int     `toml:"max_files_code"`
	MaxAssets              int     `toml:"max_assets"`
	MaxLinesCode           int     `toml:"max_lines_code"`
	MaxLinesStyle          int     `toml:"max_lines_style"`
	RequireMoreThanReadme  bool    `toml:"require_more_than_readme"`
	HashSizeBackground     int     `toml:"hash_size_background"`
	HashSizeDetail         int     `toml:"hash_size_detail"`
	MaxBackgroundPercent   float64 `toml:"max_background_percent"`
	BackgroundSplitPercent float64 `toml:"background_split_percent"`
}

// Compile contains throttles shared by the compiler variants.
type Compile struct {
	MaxPerCategoryPerSource int  `toml:"max_per_category_per_source"`
	Crop                    bool `toml:"crop"`
	SitePort                int  `toml:"site_port"`
}

// Notifications contains optional push notification configuration.
// Notifications are disabled when no ntfy topic is set.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for easel.
//
// Sections by subsystem:
//   - Paths: dataset output, temp working dirs, logs
//   - Collect: quotas, batch size, date range, timeouts
//   - GitHub / Arxiv / Imslp: per-source fetcher settings
//   - Toxicity: text scoring service and thresholds
//   - Filters: structural and rendering filter thresholds
//   - Compile: compiler throttles
//   - Notifications: optional ntfy push notifications
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Collect       Collect       `toml:"collect"`
	GitHub        GitHub        `toml:"github"`
	Arxiv         Arxiv         `toml:"arxiv"`
	Imslp         Imslp         `toml:"imslp"`
	Toxicity      Toxicity      `toml:"toxicity"`
	Filters       Filters       `toml:"filters"`
	Compile       Compile       `toml:"compile"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/easel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("easel.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{projectPath, defaultPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the output, temp, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.TmpDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DateRange returns the parsed collect date window.
func (c *Config) DateRange() (from time.Time, to time.Time, err error) {
	from, err = time.Parse("2006-01-02", c.Collect.DateFrom)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("collect.date_from: %w", err)
	}
	to, err = time.Parse("2006-01-02", c.Collect.DateTo)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("collect.date_to: %w", err)
	}
	return from, to, nil
}

// Timeout returns the per-operation timeout for downloads and renders.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Collect.TimeoutSeconds) * time.Second
}

// RetryInterval returns the sleep applied after a transient scrape failure.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Collect.RetrySeconds) * time.Second
}
