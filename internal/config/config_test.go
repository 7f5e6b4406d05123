package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("file should not exist")
	}
	if cfg.Collect.BatchSize != defaultBatchSize {
		t.Fatalf("got batch size %d", cfg.Collect.BatchSize)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`output_dir = "` + filepath.Join(dir, "out") + `"`,
		"[collect]",
		"num_instances = 7",
		`date_from = "2023-01-01"`,
		`date_to = "2023-06-01"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Collect.NumInstances != 7 {
		t.Fatalf("got %d", cfg.Collect.NumInstances)
	}
	if cfg.Paths.OutputDir != filepath.Join(dir, "out") {
		t.Fatalf("got %q", cfg.Paths.OutputDir)
	}

	from, to, err := cfg.DateRange()
	if err != nil {
		t.Fatal(err)
	}
	if !from.Before(to) {
		t.Fatal("date range should be ordered")
	}
}

func TestValidateRejectsBadDates(t *testing.T) {
	cfg := Default()
	cfg.Collect.DateFrom = "2024-01-01"
	cfg.Collect.DateTo = "2023-01-01"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for inverted date range")
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := Default()
	cfg.Toxicity.ToxicityThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range threshold")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	got, err := expandPath("~/data")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "data") {
		t.Fatalf("got %q", got)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatal(err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}
