package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"easel/internal/collect"
	"easel/internal/compile"
	"easel/internal/compile/latexc"
	"easel/internal/compile/musicc"
	"easel/internal/compile/webpagec"
	"easel/internal/config"
	"easel/internal/dataset"
	"easel/internal/deps"
	"easel/internal/filter"
	"easel/internal/filter/fetchfilters"
	"easel/internal/filter/filefilters"
	"easel/internal/filter/renderfilters"
	"easel/internal/ledger"
	"easel/internal/logging"
	"easel/internal/notifications"
	"easel/internal/scrape/arxiv"
	"easel/internal/scrape/github"
	"easel/internal/scrape/imslp"
	"easel/internal/services"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Run a collection against one source",
	}

	collectCmd.AddCommand(newCollectRunnerCommand(ctx, "latex", "Collect rendered environments from arXiv papers"))
	collectCmd.AddCommand(newCollectRunnerCommand(ctx, "webpage", "Collect screenshots of GitHub Pages sites"))
	collectCmd.AddCommand(newCollectRunnerCommand(ctx, "music", "Collect staff systems from scanned sheet music"))
	collectCmd.AddCommand(newCollectAllCommand(ctx))

	return collectCmd
}

func newCollectAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run every source concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runAllCollections(cmd, cfg)
		},
	}
}

func runAllCollections(cmd *cobra.Command, cfg *config.Config) error {
	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	statuses := deps.CheckBinaries(deps.All())
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return fmt.Errorf("missing required binaries: %s (run \"easel deps\" for details)",
			strings.Join(missing, ", "))
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "easel.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire collection lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another collection is already running against %s", cfg.Paths.OutputDir)
	}
	defer lock.Unlock()

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "easel.log")},
	})
	if err != nil {
		return err
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	names := []string{"latex", "webpage", "music"}
	runners := make([]*collect.Runner, 0, len(names))
	for _, name := range names {
		runner, identity, err := buildRunner(cfg, name, store, logger)
		if err != nil {
			return err
		}
		if err := runner.Resume(runCtx, identity); err != nil {
			return err
		}
		runners = append(runners, runner)
	}

	summaries, runErr := collect.RunAll(runCtx, runners)
	for i, summary := range summaries {
		printSummary(cmd.OutOrStdout(), summary, runners[i].Tracker.Target())
	}
	return runErr
}

// collectOverrides holds per-run flag values that shadow config settings.
type collectOverrides struct {
	destination    string
	numInstances   int
	batchSize      int
	maxPerDate     int
	dateFrom       string
	dateTo         string
	timeoutSeconds int
}

func newCollectRunnerCommand(ctx *commandContext, name, short string) *cobra.Command {
	var overrides collectOverrides

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err = applyOverrides(cmd, cfg, overrides)
			if err != nil {
				return err
			}
			return runCollection(cmd, cfg, name)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&overrides.destination, "destination", "", "Dataset output directory")
	flags.IntVar(&overrides.numInstances, "num-instances", 0, "Per-category instance target")
	flags.IntVar(&overrides.batchSize, "batch-size", 0, "Candidates requested per scrape call")
	flags.IntVar(&overrides.maxPerDate, "max-per-date", 0, "Accepted candidates per source date")
	flags.StringVar(&overrides.dateFrom, "date-from", "", "Collection window start (YYYY-MM-DD)")
	flags.StringVar(&overrides.dateTo, "date-to", "", "Collection window end (YYYY-MM-DD)")
	flags.IntVar(&overrides.timeoutSeconds, "timeout", 0, "Per-request timeout in seconds")
	return cmd
}

// applyOverrides folds set flags into a copy of the loaded config and
// revalidates, so flag values go through the same checks as file values.
func applyOverrides(cmd *cobra.Command, cfg *config.Config, overrides collectOverrides) (*config.Config, error) {
	flags := cmd.Flags()
	if !flags.Changed("destination") && !flags.Changed("num-instances") &&
		!flags.Changed("batch-size") && !flags.Changed("max-per-date") &&
		!flags.Changed("date-from") && !flags.Changed("date-to") &&
		!flags.Changed("timeout") {
		return cfg, nil
	}

	updated := *cfg
	if flags.Changed("destination") {
		expanded, err := config.ExpandPath(overrides.destination)
		if err != nil {
			return nil, fmt.Errorf("resolve destination: %w", err)
		}
		updated.Paths.OutputDir = expanded
	}
	if flags.Changed("num-instances") {
		updated.Collect.NumInstances = overrides.numInstances
	}
	if flags.Changed("batch-size") {
		updated.Collect.BatchSize = overrides.batchSize
	}
	if flags.Changed("max-per-date") {
		updated.Collect.MaxPerDate = overrides.maxPerDate
	}
	if flags.Changed("date-from") {
		updated.Collect.DateFrom = overrides.dateFrom
	}
	if flags.Changed("date-to") {
		updated.Collect.DateTo = overrides.dateTo
	}
	if flags.Changed("timeout") {
		updated.Collect.TimeoutSeconds = overrides.timeoutSeconds
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := updated.EnsureDirectories(); err != nil {
		return nil, err
	}
	return &updated, nil
}

func runCollection(cmd *cobra.Command, cfg *config.Config, name string) error {
	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	statuses := deps.CheckBinaries(deps.ForRunner(name))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return fmt.Errorf("missing required binaries for %s: %s (run \"easel deps\" for details)",
			name, strings.Join(missing, ", "))
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "easel.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire collection lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another collection is already running against %s", cfg.Paths.OutputDir)
	}
	defer lock.Unlock()

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "easel.log")},
	})
	if err != nil {
		return err
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, identity, err := buildRunner(cfg, name, store, logger)
	if err != nil {
		return err
	}
	if err := runner.Resume(runCtx, identity); err != nil {
		return err
	}

	notifier := notifications.NewService(cfg)
	if err := notifier.NotifyRunStarted(runCtx, name, runner.Tracker.Target()); err != nil {
		logger.Warn("run started notification failed", logging.Error(err))
	}

	summary, runErr := runner.Run(runCtx)
	printSummary(cmd.OutOrStdout(), summary, runner.Tracker.Target())

	// Notifications ride on a fresh context so a cancelled run still reports.
	notifyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	switch {
	case runErr == nil, errors.Is(runErr, services.ErrExhausted):
		collected := 0
		for _, count := range summary.Counts {
			collected += count
		}
		if err := notifier.NotifyRunCompleted(notifyCtx, name, collected, summary.Duration, summary.Exhausted); err != nil {
			logger.Warn("run completed notification failed", logging.Error(err))
		}
	default:
		if err := notifier.NotifyError(notifyCtx, runErr, name); err != nil {
			logger.Warn("error notification failed", logging.Error(err))
		}
	}
	return runErr
}

// buildRunner assembles one source's fetcher, filter chains, and
// compiler. The returned identity filter is seeded from the ledger
// before the run starts.
func buildRunner(cfg *config.Config, name string, store *ledger.Store, logger *slog.Logger) (*collect.Runner, *fetchfilters.Identity, error) {
	from, to, err := cfg.DateRange()
	if err != nil {
		return nil, nil, err
	}
	tracker := compile.NewTracker(cfg.Collect.NumInstances)

	runner := &collect.Runner{
		Name:    name,
		Writer:  dataset.NewWriter(cfg.Paths.OutputDir, name, logger),
		Tracker: tracker,
		Ledger:  store,
		Config:  cfg,
		Logger:  logger,
	}

	switch name {
	case "latex":
		identity := fetchfilters.NewIdentity(false)
		runner.Categories = []string{"equation", "figure", "table", "algorithm", "plot"}
		runner.Fetcher = arxiv.New(cfg, from, to, logger)
		runner.FetchFilters = []filter.FetchFilter{
			fetchfilters.NewAfterDate(from),
			fetchfilters.NewPerDateQuota(cfg.Collect.MaxPerDate),
			identity,
		}
		runner.RenderingFilters = []filter.RenderingFilter{renderfilters.NewNontrivial(cfg.Filters)}
		runner.Compiler = latexc.New(cfg, tracker, &latexc.CommandRenderer{}, logger)
		return runner, identity, nil

	case "webpage":
		identity := fetchfilters.NewIdentity(true)
		runner.Categories = []string{strings.ToLower(cfg.GitHub.Language)}
		runner.Fetcher = github.New(cfg, from, to, logger)
		runner.FetchFilters = []filter.FetchFilter{
			fetchfilters.NewAfterDate(from),
			fetchfilters.NewPerDateQuota(cfg.Collect.MaxPerDate),
			identity,
		}
		runner.FileFilters = []filter.FileFilter{filefilters.NewRepoShape(cfg.Filters)}
		if cfg.Toxicity.Enabled {
			runner.FileFilters = append(runner.FileFilters, filefilters.NewToxicity(cfg.Toxicity))
		}
		runner.RenderingFilters = []filter.RenderingFilter{renderfilters.NewNontrivial(cfg.Filters)}
		runner.Compiler = webpagec.New(cfg, tracker,
			&webpagec.StaticServer{Port: cfg.Compile.SitePort},
			&webpagec.ChromeScreenshotter{},
			logger)
		return runner, identity, nil

	case "music":
		identity := fetchfilters.NewIdentity(false)
		runner.Categories = []string{"music"}
		runner.Fetcher = imslp.New(cfg, from, to, logger)
		runner.FetchFilters = []filter.FetchFilter{identity}
		runner.RenderingFilters = []filter.RenderingFilter{renderfilters.NewNontrivial(cfg.Filters)}
		runner.Compiler = musicc.New(cfg, tracker,
			&musicc.CommandRasterizer{},
			musicc.HeuristicClassifier{},
			logger)
		return runner, identity, nil
	}

	return nil, nil, services.Wrap(services.ErrConfiguration, "easel", "build",
		fmt.Sprintf("unknown runner %q", name), nil)
}
