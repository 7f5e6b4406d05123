package testsupport

import (
	"path/filepath"
	"testing"

	"easel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.TmpDir = filepath.Join(base, "tmp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Collect.NumInstances = 3
	cfgVal.Collect.BatchSize = 5
	cfgVal.Collect.RetrySeconds = 0
	cfgVal.Toxicity.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTarget sets the per-category instance target on the test config.
func WithTarget(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collect.NumInstances = n
	}
}

// WithDateRange overrides the collection date range on the test config.
func WithDateRange(from, to string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collect.DateFrom = from
		b.cfg.Collect.DateTo = to
	}
}

// WithGitHubToken sets the search API token on the test config.
func WithGitHubToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.GitHub.Token = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
