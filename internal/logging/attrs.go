package logging

import (
	"context"
	"log/slog"
	"time"
)

const (
	// FieldComponent is the standardized key for component names.
	FieldComponent = "component"
	// FieldRunner is the standardized key for runner (source type) names.
	FieldRunner = "runner"
	// FieldCategory is the standardized key for dataset category names.
	FieldCategory = "category"
	// FieldInstance is the standardized key for candidate instance names.
	FieldInstance = "instance"
	// FieldStage is the standardized key for pipeline stage names.
	FieldStage = "stage"
	// FieldFilter is the standardized key for filter names.
	FieldFilter = "filter"
	// FieldReason is the standardized key for skip/rejection reasons.
	FieldReason = "reason"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Time(key string, value time.Time) Attr { return slog.Time(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func attrsToArgs(attrs []Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// Args converts attribute helpers into the variadic form slog methods expect.
func Args(attrs ...Attr) []any {
	return attrsToArgs(attrs)
}

// NewNop returns a logger that discards all output.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
