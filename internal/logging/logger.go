// Package logging builds the process slog logger from settings.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"notifyconf/internal/settings"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBlue   = "\x1b[34m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiRed    = "\x1b[31m"
	ansiGray   = "\x1b[90m"
)

// Quoted values first, then URL-like tokens; leftmost match wins.
var highlightPattern = regexp.MustCompile(`"[^"\n]*"|\b[a-zA-Z0-9+_-]+://[^\s"]+`)

// Options overrides sink destinations; zero value writes the console to stderr.
type Options struct {
	Console io.Writer
	NoColor bool
}

// New builds a logger for configured sinks and returns a cleanup function.
// Params: cfg contains console/file sink settings.
// Returns: slog logger, cleanup callback, and setup error.
func New(cfg settings.LogConfig) (*slog.Logger, func(), error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions is New with explicit sink destinations.
func NewWithOptions(cfg settings.LogConfig, opts Options) (*slog.Logger, func(), error) {
	var (
		handlers []slog.Handler
		closers  []io.Closer
	)

	if cfg.Console.Enabled {
		out := opts.Console
		if out == nil {
			out = os.Stderr
		}
		handler, err := buildConsoleHandler(cfg.Console, out, !opts.NoColor)
		if err != nil {
			return nil, nil, fmt.Errorf("build console handler: %w", err)
		}
		handlers = append(handlers, handler)
	}

	if cfg.File.Enabled {
		handler, closer, err := buildFileHandler(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("build file handler: %w", err)
		}
		handlers = append(handlers, handler)
		closers = append(closers, closer)
	}

	if len(handlers) == 0 {
		return nil, nil, errors.New("no log sinks enabled")
	}

	closeFn := func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), closeFn, nil
	}
	return slog.New(teeHandler{handlers: handlers}), closeFn, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// buildConsoleHandler creates a console sink handler without timestamps.
func buildConsoleHandler(sink settings.LogSinkConfig, out io.Writer, color bool) (slog.Handler, error) {
	level, err := parseLevel(sink.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return attr
		},
	}

	switch strings.ToLower(sink.Format) {
	case "line":
		if color {
			out = &colorLineWriter{dst: out}
		}
		return slog.NewTextHandler(out, opts), nil
	case "json":
		return slog.NewJSONHandler(out, opts), nil
	default:
		return nil, fmt.Errorf("unsupported console format %q", sink.Format)
	}
}

// buildFileHandler creates an append-only file sink handler.
func buildFileHandler(sink settings.LogSinkConfig) (slog.Handler, io.Closer, error) {
	level, err := parseLevel(sink.Level)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(sink.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open file %q: %w", sink.Path, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(sink.Format) {
	case "line":
		return slog.NewTextHandler(file, opts), file, nil
	case "json":
		return slog.NewJSONHandler(file, opts), file, nil
	default:
		_ = file.Close()
		return nil, nil, fmt.Errorf("unsupported file format %q", sink.Format)
	}
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unsupported level %q", value)
	}
	return level, nil
}

// teeHandler fans one record out to every enabled handler.
type teeHandler struct {
	handlers []slog.Handler
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range t.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record; all sinks are attempted and errors joined.
func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range t.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, handler := range t.handlers {
		next = append(next, handler.WithAttrs(attrs))
	}
	return teeHandler{handlers: next}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, handler := range t.handlers {
		next = append(next, handler.WithGroup(name))
	}
	return teeHandler{handlers: next}
}

// colorLineWriter tints each rendered line by level and highlights quoted values and URLs.
type colorLineWriter struct {
	dst io.Writer
}

func (w *colorLineWriter) Write(payload []byte) (int, error) {
	line := string(payload)
	tone := levelColor(line)
	if tone == "" {
		return w.dst.Write(payload)
	}

	rendered := tone + highlight(line, tone) + ansiReset
	n, err := io.WriteString(w.dst, rendered)
	if n > len(payload) {
		n = len(payload)
	}
	return n, err
}

// levelColor maps the rendered level token to an ANSI color.
func levelColor(line string) string {
	switch {
	case strings.Contains(line, "level=DEBUG"):
		return ansiGray
	case strings.Contains(line, "level=INFO"):
		return ansiBlue
	case strings.Contains(line, "level=WARN"):
		return ansiYellow
	case strings.Contains(line, "level=ERROR"):
		return ansiRed
	default:
		return ""
	}
}

// highlight colors quoted values green and URL tokens cyan, restoring base after each.
func highlight(line, base string) string {
	return highlightPattern.ReplaceAllStringFunc(line, func(token string) string {
		color := ansiCyan
		if strings.HasPrefix(token, `"`) {
			color = ansiGreen
		}
		return color + token + ansiReset + base
	})
}
