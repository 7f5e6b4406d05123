package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCollect(); err != nil {
		return err
	}
	if err := c.validateFilters(); err != nil {
		return err
	}
	if err := c.validateToxicity(); err != nil {
		return err
	}
	if err := c.validateCompile(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.TmpDir == "" {
		return errors.New("paths.tmp_dir must be set")
	}
	return nil
}

func (c *Config) validateCollect() error {
	if err := ensurePositiveMap(map[string]int{
		"collect.num_instances":   c.Collect.NumInstances,
		"collect.batch_size":      c.Collect.BatchSize,
		"collect.max_per_date":    c.Collect.MaxPerDate,
		"collect.timeout_seconds": c.Collect.TimeoutSeconds,
		"collect.retry_seconds":   c.Collect.RetrySeconds,
	}); err != nil {
		return err
	}
	from, to, err := c.DateRange()
	if err != nil {
		return err
	}
	if !from.Before(to) {
		return errors.New("collect.date_from must be before collect.date_to")
	}
	return nil
}

func (c *Config) validateFilters() error {
	if err := ensurePositiveMap(map[string]int{
		"filters.hash_size_background": c.Filters.HashSizeBackground,
		"filters.hash_size_detail":     c.Filters.HashSizeDetail,
	}); err != nil {
		return err
	}
	if c.Filters.MaxBackgroundPercent <= 0 || c.Filters.MaxBackgroundPercent > 100 {
		return errors.New("filters.max_background_percent must be in (0, 100]")
	}
	if c.Filters.BackgroundSplitPercent < 0 || c.Filters.BackgroundSplitPercent > 100 {
		return errors.New("filters.background_split_percent must be in [0, 100]")
	}
	return nil
}

func (c *Config) validateToxicity() error {
	if !c.Toxicity.Enabled {
		return nil
	}
	if c.Toxicity.ToxicityThreshold < 0 || c.Toxicity.ToxicityThreshold > 1 {
		return errors.New("toxicity.toxicity_threshold must be between 0 and 1")
	}
	if c.Toxicity.SexuallyExplicitThreshold < 0 || c.Toxicity.SexuallyExplicitThreshold > 1 {
		return errors.New("toxicity.sexually_explicit_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateCompile() error {
	if c.Compile.MaxPerCategoryPerSource <= 0 {
		return errors.New("compile.max_per_category_per_source must be positive")
	}
	if c.Compile.SitePort <= 0 || c.Compile.SitePort > 65535 {
		return errors.New("compile.site_port must be a valid port")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
