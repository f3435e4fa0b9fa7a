package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the application logger, backed by zerolog
type Logger struct {
	log zerolog.Logger
}

// NewLogger creates a logger writing to stderr.
// level is one of debug, info, warn, error; format is json or console.
func NewLogger(level, format string) *Logger {
	return NewLoggerWithOutput(level, format, os.Stderr)
}

// NewLoggerWithOutput creates a logger writing to out
func NewLoggerWithOutput(level, format string, out io.Writer) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = out
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	return &Logger{
		log: zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger(),
	}
}

// NopLogger returns a logger that discards everything
func NopLogger() *Logger {
	return &Logger{log: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// With returns a child logger carrying an extra field
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{log: l.log.With().Interface(key, value).Logger()}
}

// Zerolog exposes the underlying logger for structured call sites
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.log
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.log.Info().Msgf(format, v...)
}

// Warn logs a warning
func (l *Logger) Warn(format string, v ...interface{}) {
	l.log.Warn().Msgf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.log.Error().Msgf(format, v...)
}
