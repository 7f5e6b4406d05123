package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	out, _, err := runCLI(t, []string{"config", "validate", "--path", configPath}, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "is valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestConfigInitRefusesExistingFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("# existing\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when target exists")
	}

	out, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := "[collect]\nnum_instances = -3\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "validate", "--path", configPath}, ""); err == nil {
		t.Fatal("expected validation error for negative num_instances")
	}
}
