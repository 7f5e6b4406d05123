// Package collect drives the fetch, filter, compile, persist loop for
// one runner until every category reaches its target count.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"easel/internal/compile"
	"easel/internal/config"
	"easel/internal/dataset"
	"easel/internal/fileutil"
	"easel/internal/filter"
	"easel/internal/ledger"
	"easel/internal/logging"
	"easel/internal/scrape"
	"easel/internal/services"
)

// Runner wires one fetcher through its filter chains and compiler.
type Runner struct {
	Name       string
	Categories []string

	Fetcher          scrape.Fetcher
	FetchFilters     []filter.FetchFilter
	FileFilters      []filter.FileFilter
	RenderingFilters []filter.RenderingFilter
	Compiler         compile.Compiler

	Writer  *dataset.Writer
	Tracker *compile.Tracker
	Ledger  *ledger.Store

	Config *config.Config
	Logger *slog.Logger

	logger *slog.Logger
}

// Summary reports what one run produced.
type Summary struct {
	Runner     string
	Counts     map[string]int
	Rejections map[string]int
	Duration   time.Duration
	Exhausted  bool
}

func (r *Runner) validate() error {
	switch {
	case r.Name == "":
		return services.Wrap(services.ErrConfiguration, "collect", "validate", "runner name missing", nil)
	case len(r.Categories) == 0:
		return services.Wrap(services.ErrConfiguration, "collect", "validate", "runner has no categories", nil)
	case r.Fetcher == nil, r.Compiler == nil, r.Writer == nil, r.Tracker == nil, r.Config == nil:
		return services.Wrap(services.ErrConfiguration, "collect", "validate",
			fmt.Sprintf("runner %s is missing a component", r.Name), nil)
	}
	return nil
}

// Resume seeds the tracker and identity state from the ledger, so a
// restarted run continues where the previous one stopped.
func (r *Runner) Resume(ctx context.Context, identity interface{ Observe(name string) }) error {
	if r.Ledger == nil {
		return nil
	}
	counts, err := r.Ledger.Counts(ctx, r.Name)
	if err != nil {
		return err
	}
	for category, count := range counts {
		r.Tracker.Resume(category, count)
	}
	if identity != nil {
		names, err := r.Ledger.SeenInstances(ctx, r.Name)
		if err != nil {
			return err
		}
		for _, name := range names {
			identity.Observe(name)
		}
	}
	return nil
}

// Run collects until every category reaches the target, the source is
// exhausted, or the context ends.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if err := r.validate(); err != nil {
		return Summary{}, err
	}
	r.logger = logging.NewComponentLogger(r.Logger, "collect").With(logging.String(logging.FieldRunner, r.Name))
	started := time.Now()

	r.logger.Info("collection started",
		logging.Any("categories", r.Categories),
		logging.Int("target", r.Tracker.Target()),
	)

	var exhaustErr error
	for !r.Tracker.Done(r.Categories) {
		if err := ctx.Err(); err != nil {
			return r.summary(ctx, started, false), err
		}

		results, err := r.Fetcher.Scrape(ctx, r.Config.Collect.BatchSize)
		if err != nil {
			if services.Retryable(err) {
				r.logger.Warn("scrape failed, backing off",
					logging.Duration("retry_in", r.Config.RetryInterval()),
					logging.Error(err),
				)
				if sleepErr := sleepCtx(ctx, r.Config.RetryInterval()); sleepErr != nil {
					return r.summary(ctx, started, false), sleepErr
				}
				continue
			}
			if errors.Is(err, services.ErrExhausted) {
				r.logger.Warn("source exhausted before targets were met", logging.Error(err))
				exhaustErr = err
				break
			}
			return r.summary(ctx, started, false), err
		}

		if err := r.processBatch(ctx, results); err != nil {
			return r.summary(ctx, started, false), err
		}
	}

	summary := r.summary(ctx, started, exhaustErr != nil)
	if err := r.Writer.Finalize(); err != nil {
		return summary, err
	}
	r.logger.Info("collection finished",
		logging.Any("counts", summary.Counts),
		logging.Duration("elapsed", summary.Duration),
	)
	return summary, exhaustErr
}

// processBatch runs every candidate in one scrape batch through the
// pipeline. A stale notice fires at most once per batch.
func (r *Runner) processBatch(ctx context.Context, results []scrape.Result) error {
	staleNotified := false
	for i := range results {
		if r.Tracker.Done(r.Categories) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.processCandidate(ctx, &results[i], &staleNotified); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) processCandidate(ctx context.Context, result *scrape.Result, staleNotified *bool) error {
	workDir := filepath.Join(r.Config.Paths.TmpDir, r.Name)
	if err := fileutil.ResetDir(workDir); err != nil {
		return fmt.Errorf("reset work dir: %w", err)
	}
	candidateLogger := r.logger.With(logging.String(logging.FieldInstance, result.InstanceName))

	persisted, err := r.runCandidate(ctx, workDir, result, staleNotified, candidateLogger)
	if err != nil {
		return err
	}
	// Rejected candidates leave their temp files behind for inspection
	// unless cleanup is enabled.
	if persisted == 0 && r.Config.Collect.CleanupRejected {
		if cleanErr := os.RemoveAll(workDir); cleanErr != nil {
			candidateLogger.Warn("work dir cleanup failed", logging.Error(cleanErr))
		}
	}
	return nil
}

// runCandidate walks one candidate through the pipeline and returns how
// many instances it persisted.
func (r *Runner) runCandidate(ctx context.Context, workDir string, result *scrape.Result, staleNotified *bool, candidateLogger *slog.Logger) (int, error) {
	keep, err := r.applyFetchFilters(ctx, result, staleNotified, candidateLogger)
	if err != nil || !keep {
		return 0, err
	}

	dataPath, err := r.download(ctx, workDir, result, candidateLogger)
	if err != nil || dataPath == "" {
		return 0, err
	}

	fileInfo, keep, err := r.applyFileFilters(ctx, dataPath, result, candidateLogger)
	if err != nil || !keep {
		return 0, err
	}

	buildDir := filepath.Join(workDir, "build")
	compiled, compileInfo, err := r.Compiler.Compile(ctx, dataPath, buildDir, result)
	if err != nil {
		if services.SkipsCandidate(err) {
			candidateLogger.Debug("compilation skipped candidate", logging.Error(err))
			return 0, nil
		}
		return 0, err
	}

	persisted := 0
	for _, instance := range compiled {
		kept, err := r.persistInstance(ctx, instance, result, fileInfo, compileInfo, candidateLogger)
		if err != nil {
			return persisted, err
		}
		if kept {
			persisted++
		}
	}
	return persisted, nil
}

func (r *Runner) applyFetchFilters(ctx context.Context, result *scrape.Result, staleNotified *bool, logger *slog.Logger) (bool, error) {
	for _, f := range r.FetchFilters {
		keep, err := f.Filter(*result)
		if err != nil {
			if services.SkipsCandidate(err) {
				r.recordRejection(ctx, "fetch", f.Name(), result.InstanceName, err.Error())
				return false, nil
			}
			return false, err
		}
		if keep {
			continue
		}
		logger.Debug("candidate rejected",
			logging.String(logging.FieldStage, "fetch"),
			logging.String(logging.FieldFilter, f.Name()),
		)
		r.recordRejection(ctx, "fetch", f.Name(), result.InstanceName, "")
		if filter.TriggersStaleNotice(f) && !*staleNotified {
			if notifyErr := r.Fetcher.NotifyStale(); notifyErr != nil {
				return false, notifyErr
			}
			*staleNotified = true
		}
		return false, nil
	}
	return true, nil
}

// download fetches the candidate into workDir and unpacks archives.
// Returns the path compilation should read, empty when the candidate
// was skipped.
func (r *Runner) download(ctx context.Context, workDir string, result *scrape.Result, logger *slog.Logger) (string, error) {
	downloadDir := filepath.Join(workDir, "download")
	if err := fileutil.ResetDir(downloadDir); err != nil {
		return "", fmt.Errorf("reset download dir: %w", err)
	}

	if err := r.Fetcher.Download(ctx, downloadDir, *result); err != nil {
		if services.SkipsCandidate(err) {
			logger.Debug("download skipped candidate", logging.Error(err))
			return "", nil
		}
		return "", err
	}

	dataPath := filepath.Join(downloadDir, result.InstanceName)
	if strings.HasSuffix(result.InstanceName, ".tar.gz") {
		extractDir := filepath.Join(workDir, "extracted")
		if err := fileutil.ExtractTarGz(dataPath, extractDir); err != nil {
			logger.Debug("archive unpack skipped candidate", logging.Error(err))
			return "", nil
		}
		dataPath = extractDir
	}
	return dataPath, nil
}

func (r *Runner) applyFileFilters(ctx context.Context, dataPath string, result *scrape.Result, logger *slog.Logger) (map[string]any, bool, error) {
	info := make(map[string]any)
	for _, f := range r.FileFilters {
		keep, filterInfo, err := f.Filter(dataPath)
		if err != nil {
			if services.SkipsCandidate(err) {
				logger.Debug("file filter skipped candidate",
					logging.String(logging.FieldFilter, f.Name()),
					logging.Error(err),
				)
				r.recordRejection(ctx, "file", f.Name(), result.InstanceName, err.Error())
				return nil, false, nil
			}
			return nil, false, err
		}
		if filterInfo != nil {
			info[f.Name()] = filterInfo
		}
		if !keep {
			logger.Debug("candidate rejected",
				logging.String(logging.FieldStage, "file"),
				logging.String(logging.FieldFilter, f.Name()),
			)
			r.recordRejection(ctx, "file", f.Name(), result.InstanceName, "")
			return nil, false, nil
		}
	}
	return info, true, nil
}

// persistInstance screens one compiled rendering and writes it out. A
// rendering filter that fails to run keeps the image: losing a
// dedup or blankness check is better than losing the instance.
func (r *Runner) persistInstance(ctx context.Context, instance compile.Result, result *scrape.Result, fileInfo, compileInfo map[string]any, logger *slog.Logger) (bool, error) {
	if r.Tracker.Saturated(instance.Category) {
		return false, nil
	}

	renderInfo := make(map[string]any)
	for _, f := range r.RenderingFilters {
		keep, info, err := f.CheckAndAccept(instance.RenderingPath)
		if err != nil {
			logger.Warn("rendering filter failed, keeping image",
				logging.String(logging.FieldFilter, f.Name()),
				logging.Error(err),
			)
			continue
		}
		if info != nil {
			renderInfo[f.Name()] = info
		}
		if !keep {
			reason, _ := info["reason"].(string)
			logger.Debug("rendering rejected",
				logging.String(logging.FieldFilter, f.Name()),
				logging.String(logging.FieldReason, reason),
				logging.String(logging.FieldCategory, instance.Category),
			)
			r.recordRejection(ctx, "rendering", f.Name(), result.InstanceName, reason)
			return false, nil
		}
	}

	metadata := make(map[string]any, len(result.AdditionalInfo)+6)
	for key, value := range result.AdditionalInfo {
		metadata[key] = value
	}
	metadata["instance_name"] = result.InstanceName
	metadata["date"] = result.Date.Format("2006-01-02")
	metadata["date_scrapped"] = time.Now().Format(time.RFC3339)
	if len(fileInfo) > 0 {
		metadata["file_filters"] = fileInfo
	}
	if len(compileInfo) > 0 {
		metadata["compilation"] = compileInfo
	}
	if len(renderInfo) > 0 {
		metadata["rendering_filters"] = renderInfo
	}

	id, err := r.Writer.Persist(dataset.Instance{
		Category:      instance.Category,
		RenderingPath: instance.RenderingPath,
		StructurePath: instance.DataPath,
		Text:          instance.Text,
		AssetsPaths:   instance.AssetsPaths,
		Metadata:      metadata,
	})
	if err != nil {
		return false, err
	}
	if r.Ledger != nil {
		if err := r.Ledger.RecordInstance(ctx, r.Name, instance.Category, id, result.InstanceName, result.Date); err != nil {
			return false, err
		}
	}

	count := r.Tracker.Acknowledge(instance.Category)
	logger.Info("instance collected",
		logging.String(logging.FieldCategory, instance.Category),
		logging.Int("count", count),
		logging.Int("target", r.Tracker.Target()),
	)
	return true, nil
}

func (r *Runner) recordRejection(ctx context.Context, stage, filterName, instanceName, reason string) {
	if r.Ledger == nil {
		return
	}
	if err := r.Ledger.RecordRejection(ctx, r.Name, stage, filterName, instanceName, reason); err != nil {
		r.logger.Warn("rejection not recorded", logging.Error(err))
	}
}

func (r *Runner) summary(ctx context.Context, started time.Time, exhausted bool) Summary {
	summary := Summary{
		Runner:    r.Name,
		Counts:    r.Tracker.Counts(),
		Duration:  time.Since(started),
		Exhausted: exhausted,
	}
	if r.Ledger != nil {
		if rejections, err := r.Ledger.RejectionCounts(ctx, r.Name); err == nil {
			summary.Rejections = rejections
		}
	}
	return summary
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
