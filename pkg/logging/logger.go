package logging

import (
	"context"
	"sort"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
)

// Fields represents structured logging fields.
type Fields map[string]any

// Logger is the logging capability handed to pipeline components.
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)
	Error(ctx context.Context, err error, fields Fields)
}

type logxLogger struct {
	component string
}

// NewLogger returns a Logger backed by go-zero's logx. The component name is
// attached to every event so a shared sink can tell the stages apart.
func NewLogger(component string) Logger {
	return &logxLogger{component: strings.TrimSpace(component)}
}

// WithRunID attaches run_id to every logx event written with the returned
// context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return logx.ContextWithFields(ctx, logx.Field("run_id", runID))
}

// SetLevel adjusts the global logx threshold from a textual level.
func SetLevel(level string) {
	logx.SetLevel(parseLevel(level))
}

func (l *logxLogger) Debug(ctx context.Context, msg string, fields Fields) {
	logx.WithContext(ctx).Debugw(msg, l.logFields(fields)...)
}

func (l *logxLogger) Info(ctx context.Context, msg string, fields Fields) {
	logx.WithContext(ctx).Infow(msg, l.logFields(fields)...)
}

func (l *logxLogger) Warn(ctx context.Context, msg string, fields Fields) {
	logx.WithContext(ctx).Sloww(msg, l.logFields(fields)...)
}

func (l *logxLogger) Error(ctx context.Context, err error, fields Fields) {
	msg := "<nil error>"
	if err != nil {
		msg = err.Error()
	}
	logx.WithContext(ctx).Errorw(msg, l.logFields(fields)...)
}

func (l *logxLogger) logFields(fields Fields) []logx.LogField {
	out := make([]logx.LogField, 0, len(fields)+1)
	if l.component != "" {
		out = append(out, logx.Field("component", l.component))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, logx.Field(k, fields[k]))
	}
	return out
}

func parseLevel(level string) uint32 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logx.DebugLevel
	case "info":
		return logx.InfoLevel
	case "error":
		return logx.ErrorLevel
	case "severe", "fatal":
		return logx.SevereLevel
	default:
		return logx.InfoLevel
	}
}

// Nop discards every event.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, Fields) {}
func (nopLogger) Info(context.Context, string, Fields)  {}
func (nopLogger) Warn(context.Context, string, Fields)  {}
func (nopLogger) Error(context.Context, error, Fields)  {}
