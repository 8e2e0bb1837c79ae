/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package logging defines the minimal logger contract used across the
// syncstore library, with a default implementation over log/slog.
package logging

import (
	"log/slog"
	"os"
)

// Logger is the diagnostic surface the library writes to. Swallowed
// persistence failures are reported here, so callers that need
// visibility into degraded durability should plug in their own
// implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

const prefix = "[syncstore] "

// DefaultLogger writes through a slog handler with a package prefix.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefault returns a DefaultLogger over a text handler on stderr.
func NewDefault(level slog.Level) *DefaultLogger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	return &DefaultLogger{logger: logger}
}

// NewSlog wraps an existing slog logger.
func NewSlog(logger *slog.Logger) *DefaultLogger {
	return &DefaultLogger{logger: logger}
}

func (d *DefaultLogger) Debug(msg string, args ...any) {
	d.logger.Debug(prefix+msg, args...)
}

func (d *DefaultLogger) Info(msg string, args ...any) {
	d.logger.Info(prefix+msg, args...)
}

func (d *DefaultLogger) Warn(msg string, args ...any) {
	d.logger.Warn(prefix+msg, args...)
}

func (d *DefaultLogger) Error(msg string, args ...any) {
	d.logger.Error(prefix+msg, args...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}
