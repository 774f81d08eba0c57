// Package logs provides the structured logging used throughout forkjoin.
//
// It never logs about job outcomes or job bodies — the scheduler has no
// error channel for those (see the package doc on forkjoin) — only about
// its own lifecycle: construction, worker start/stop, and pool resets.
// Playback is not logged.
package logs

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Format selects the slog handler used by the default logger.
type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
)

// Logger is the interface that wraps the basic logging methods.
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...interface{})
	Info(ctx context.Context, msg string, keysAndValues ...interface{})
	Warn(ctx context.Context, msg string, keysAndValues ...interface{})
	Error(ctx context.Context, msg string, keysAndValues ...interface{})
	WithFields(fields map[string]interface{}) Logger
	Enable()
	Disable()
}

// config holds the construction options for the default logger.
type config struct {
	format Format
	output *os.File
}

// Option configures the default logger.
type Option func(*config)

// WithFormat selects text or JSON output.
func WithFormat(format Format) Option {
	return func(c *config) { c.format = format }
}

// WithOutput redirects log output away from os.Stdout.
func WithOutput(output *os.File) Option {
	return func(c *config) { c.output = output }
}

type defaultLogger struct {
	logger  *slog.Logger
	enabled *atomic.Bool
}

// NewDefaultLogger builds a Logger backed by log/slog at the given level.
func NewDefaultLogger(level slog.Leveler, opts ...Option) Logger {
	cfg := config{format: TextFormat, output: os.Stdout}
	for _, opt := range opts {
		opt(&cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.format {
	case JSONFormat:
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	default:
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	}

	enabled := &atomic.Bool{}
	enabled.Store(true)
	return &defaultLogger{logger: slog.New(handler), enabled: enabled}
}

func (l *defaultLogger) Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if l.enabled.Load() {
		l.logger.DebugContext(ctx, msg, keysAndValues...)
	}
}

func (l *defaultLogger) Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if l.enabled.Load() {
		l.logger.InfoContext(ctx, msg, keysAndValues...)
	}
}

func (l *defaultLogger) Warn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if l.enabled.Load() {
		l.logger.WarnContext(ctx, msg, keysAndValues...)
	}
}

func (l *defaultLogger) Error(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if l.enabled.Load() {
		l.logger.ErrorContext(ctx, msg, keysAndValues...)
	}
}

func (l *defaultLogger) WithFields(fields map[string]interface{}) Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &defaultLogger{logger: l.logger.With(args...), enabled: l.enabled}
}

// Enable turns logging back on after Disable.
func (l *defaultLogger) Enable() { l.enabled.Store(true) }

// Disable silences all log calls without tearing down the logger.
func (l *defaultLogger) Disable() { l.enabled.Store(false) }

// Initialize sets the package-level Log used by the free functions below.
func Initialize(level Level, opts ...Option) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	}
	Log = NewDefaultLogger(slogLevel, opts...)
}

// Log is the package-level logger used by Debug/Info/Warn/Error.
var Log Logger

func Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	Log.Debug(ctx, msg, keysAndValues...)
}

func Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	Log.Info(ctx, msg, keysAndValues...)
}

func Warn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	Log.Warn(ctx, msg, keysAndValues...)
}

func Error(ctx context.Context, msg string, keysAndValues ...interface{}) {
	Log.Error(ctx, msg, keysAndValues...)
}
