// Package logging provides structured, subsystem-tagged logging for Cheshire.
//
// It wraps log/slog with a small set of level-named helpers so call sites
// read as "Info(subsystem, fmt, args...)" instead of threading a *slog.Logger
// through every constructor. The process has exactly one mode (unlike the
// teacher's CLI/TUI split): a single slog.Logger configured once at startup.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Level defines the severity of a log entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes Level satisfy fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var defaultLogger *slog.Logger

// Init configures the process-wide logger. Safe to call once at startup;
// subsequent calls replace the logger (useful in tests).
func Init(level Level, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func init() {
	Init(LevelInfo, os.Stderr)
}

func logInternal(level Level, subsystem string, err error, messageFmt string, args ...interface{}) {
	if defaultLogger == nil || !defaultLogger.Enabled(context.Background(), level.slogLevel()) {
		return
	}
	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}
	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	defaultLogger.LogAttrs(context.Background(), level.slogLevel(), msg, attrs...)
}

// Debug logs a debug-level message tagged with subsystem.
func Debug(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an info-level message tagged with subsystem.
func Info(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warn-level message tagged with subsystem.
func Warn(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error-level message tagged with subsystem and the triggering error.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}
