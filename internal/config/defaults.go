package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	defaultGitHubAPIBase  = "https://api.github.com"
	defaultArxivOAIBase   = "http://export.arxiv.org/oai2"
	defaultEPrintBase     = "https://arxiv.org/e-print/"
	defaultImslpBaseURL   = "https://imslp.org"
	defaultToxicityAPI    = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultNumInstances   = 100
	defaultBatchSize      = 50
	defaultMaxPerDate     = 40
	defaultTimeoutSeconds = 30
	defaultRetrySeconds   = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	now := time.Now()
	return Config{
		Paths: Paths{
			OutputDir: filepath.Join(xdg.DataHome, "easel", "data"),
			TmpDir:    filepath.Join(xdg.CacheHome, "easel", "tmp"),
			LogDir:    filepath.Join(xdg.DataHome, "easel", "logs"),
		},
		Collect: Collect{
			NumInstances:    defaultNumInstances,
			BatchSize:       defaultBatchSize,
			MaxPerDate:      defaultMaxPerDate,
			DateFrom:        now.AddDate(-1, 0, 0).Format("2006-01-02"),
			DateTo:          now.Format("2006-01-02"),
			TimeoutSeconds:  defaultTimeoutSeconds,
			RetrySeconds:    defaultRetrySeconds,
			CleanupRejected: true,
		},
		GitHub: GitHub{
			APIBase:   defaultGitHubAPIBase,
			Language:  "html",
			MaxSizeKB: 1000,
			PageSize:  100,
		},
		Arxiv: Arxiv{
			OAIBase:     defaultArxivOAIBase,
			EPrintBase:  defaultEPrintBase,
			Subcategory: "cs",
		},
		Imslp: Imslp{
			BaseURL:  defaultImslpBaseURL,
			PageSize: 100,
		},
		Toxicity: Toxicity{
			Enabled:                   true,
			Endpoint:                  defaultToxicityAPI,
			ToxicityThreshold:         0.5,
			SexuallyExplicitThreshold: 0.3,
		},
		Filters: Filters{
			MinLinesCode:           10,
			MaxFilesCode:           5,
			MaxAssets:              5,
			MaxLinesCode:           1000,
			MaxLinesStyle:          2000,
			RequireMoreThanReadme:  true,
			HashSizeBackground:     8,
			HashSizeDetail:         5,
			MaxBackgroundPercent:   95.0,
			BackgroundSplitPercent: 50.0,
		},
		Compile: Compile{
			MaxPerCategoryPerSource: 5,
			Crop:                    true,
			SitePort:                4000,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: 10,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
