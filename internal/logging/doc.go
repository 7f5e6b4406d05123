// Package logging assembles the structured slog loggers used across easel.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so pipeline code tags log lines
// with runner, category, and instance identifiers in a uniform shape. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
