package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// CombinedLogFile receives every record at or above the configured level.
	CombinedLogFile = "combined.log"
	// ErrorLogFile receives error records only.
	ErrorLogFile = "error.log"
)

// Options controls the sinks of a SlogLogger.
type Options struct {
	// Service is attached to every record as the "service" attribute.
	Service string

	// Component is attached as the "component" attribute.
	Component string

	// Level is the minimum level: debug, info, warn or error.
	Level string

	// Console enables human-readable text output on ConsoleWriter
	// (os.Stdout when nil). Production deployments turn this off and rely
	// on the JSON files.
	Console       bool
	ConsoleWriter io.Writer

	// Dir is where combined.log and error.log are written. Empty disables
	// the file sinks.
	Dir string
}

// SlogLogger implements Logger on top of log/slog, fanning each record out
// to every configured handler.
type SlogLogger struct {
	handlers []slog.Handler
	closers  []io.Closer
}

// New builds a logger from opts. The returned logger owns any files it
// opened; call Close when the process is done with it.
func New(opts Options) (*SlogLogger, error) {
	level := ParseLevel(opts.Level)
	l := &SlogLogger{}

	if opts.Console {
		w := opts.ConsoleWriter
		if w == nil {
			w = os.Stdout
		}
		l.handlers = append(l.handlers, slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log dir %s: %w", opts.Dir, err)
		}
		combined, err := openLogFile(filepath.Join(opts.Dir, CombinedLogFile))
		if err != nil {
			return nil, err
		}
		errFile, err := openLogFile(filepath.Join(opts.Dir, ErrorLogFile))
		if err != nil {
			combined.Close()
			return nil, err
		}
		l.closers = append(l.closers, combined, errFile)
		l.handlers = append(l.handlers,
			slog.NewJSONHandler(combined, &slog.HandlerOptions{Level: level}),
			slog.NewJSONHandler(errFile, &slog.HandlerOptions{Level: slog.LevelError}),
		)
	}

	var base []slog.Attr
	if opts.Service != "" {
		base = append(base, slog.String("service", opts.Service))
	}
	if opts.Component != "" {
		base = append(base, slog.String("component", opts.Component))
	}
	if len(base) > 0 {
		for i, h := range l.handlers {
			l.handlers[i] = h.WithAttrs(base)
		}
	}

	return l, nil
}

// NewStdoutLogger returns a JSON logger on stdout at info level. It is the
// logger used by tools and tests that do not load configuration.
func NewStdoutLogger(component string) *SlogLogger {
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if component != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("component", component)})
	}
	return &SlogLogger{handlers: []slog.Handler{h}}
}

func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return f, nil
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *SlogLogger) log(level slog.Level, msg string, fields ...Field) {
	ctx := context.Background()
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(toAttrs(fields)...)
	for _, h := range l.handlers {
		if !h.Enabled(ctx, level) {
			continue
		}
		_ = h.Handle(ctx, r.Clone())
	}
}

func toAttrs(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	return attrs
}

func (l *SlogLogger) Debug(msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, fields...)
}

func (l *SlogLogger) Info(msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, fields...)
}

func (l *SlogLogger) Warn(msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, fields...)
}

func (l *SlogLogger) Error(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields...)
}

// With returns a child logger sharing the parent's sinks. The child does not
// own the files; only the root logger closes them.
func (l *SlogLogger) With(fields ...Field) Logger {
	attrs := toAttrs(fields)
	child := &SlogLogger{handlers: make([]slog.Handler, len(l.handlers))}
	for i, h := range l.handlers {
		child.handlers[i] = h.WithAttrs(attrs)
	}
	return child
}

// Close releases the log files opened by New.
func (l *SlogLogger) Close() error {
	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.closers = nil
	return firstErr
}
