// Package logs provides file tailing helpers for the CLI.
//
// It reads the last lines of a run log with bounded memory usage and
// powers follow mode for `easel logs --follow`. Callers supply a context
// so polling shuts down cleanly when the CLI exits.
package logs
