package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig writes a minimal configuration whose paths live under
// the test's temp directory; everything else falls back to defaults.
func writeTestConfig(t *testing.T, base string) string {
	t.Helper()
	outputDir := filepath.Join(base, "data")
	tmpDir := filepath.Join(base, "tmp")
	logDir := filepath.Join(base, "logs")
	for _, dir := range []string{outputDir, tmpDir, logDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	content := fmt.Sprintf(
		"[paths]\noutput_dir = %q\ntmp_dir = %q\nlog_dir = %q\n",
		outputDir,
		tmpDir,
		logDir,
	)
	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
