// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging wraps log/slog with a small structured-logger type and a
// default package-level instance: quick package-level calls for ambient
// code, an explicit *Logger for components that carry their own fields.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger is a structured logger over log/slog with a fixed set of base
// attributes (e.g. a component name) applied to every record.
type Logger struct {
	slog *slog.Logger
}

// New builds a Logger writing text records to stderr at the given level.
func New(level slog.Level) *Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{slog: slog.New(h)}
}

// With returns a Logger with additional base key/value attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// InfoContext and ErrorContext thread a context through to slog.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slog.ErrorContext(ctx, msg, args...)
}

var def = New(slog.LevelInfo)

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) { def = l }

// Default returns the package-level default logger.
func Default() *Logger { return def }

// Debug, Info, Warn and Error log through the package-level default
// Logger, for call sites that don't hold their own instance.
func Debug(msg string, args ...any) { def.Debug(msg, args...) }
func Info(msg string, args ...any)  { def.Info(msg, args...) }
func Warn(msg string, args ...any)  { def.Warn(msg, args...) }
func Error(msg string, args ...any) { def.Error(msg, args...) }
