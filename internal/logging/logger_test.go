package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandlerFormatsComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger = logger.With(String(FieldComponent, "collector"))
	logger.Info("candidate skipped",
		String(FieldFilter, "date"),
		Int("batch", 3),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO collector: candidate skipped") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "filter=date") || !strings.Contains(line, "batch=3") {
		t.Fatalf("missing attrs in line: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be folded into prefix: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Warn("skip", String(FieldReason, "white image"))

	if !strings.Contains(buf.String(), `reason="white image"`) {
		t.Fatalf("expected quoted reason, got %q", buf.String())
	}
}

func TestConsoleHandlerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line should be filtered, got %q", buf.String())
	}
	logger.Error("kept")
	if !strings.Contains(buf.String(), "ERROR") {
		t.Fatalf("expected error line, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestFormatValueDuration(t *testing.T) {
	got := formatValue(slog.DurationValue(1500 * time.Millisecond))
	if got != "1.5s" {
		t.Fatalf("got %q", got)
	}
}
