// Package log wraps log/slog with a per-component logger. The TUI owns the
// terminal, so the default sink is a file; stdout handlers are only used by
// plain CLI subcommands.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type Logger struct {
	*slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: "fingram",
	}
}

// New creates a logger. With no explicit handler the output is discarded;
// use NewFile or pass a handler for a real sink.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: config.Level})
	}
	return &Logger{
		Logger:    slog.New(handler),
		component: config.Component,
	}
}

// NewFile creates a logger appending text records to path, creating parent
// directories as needed. Falls back to a discard logger if the file cannot
// be opened, so logging never takes the app down.
func NewFile(path string, level slog.Level, component string) *Logger {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return New(Config{Level: level, Component: component})
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return New(Config{Level: level, Component: component})
	}
	return New(Config{
		Level:     level,
		Component: component,
		Handler:   slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}),
	})
}

// WithComponent returns a logger tagging records with a component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger,
		component: component,
	}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
	}
}

func (l *Logger) Component() string { return l.component }

func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.Logger.InfoContext(ctx, msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.Logger.ErrorContext(ctx, msg, append([]any{"component", l.component}, args...)...)
}
