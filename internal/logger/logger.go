// Package logger provides structured logging for cohortstats.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with query-specific helpers.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // console output for humans
	Output io.Writer
}

// New creates a structured logger. Output defaults to stderr so that
// results written to stdout stay machine-readable.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.WarnLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "cohortstats").
		Logger()
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message.
func (l *Logger) Info(msg string) {
	l.zlog.Info().Msg(msg)
}

// Debug starts a debug event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn logs a warning with its cause.
func (l *Logger) Warn(msg string, err error) {
	l.zlog.Warn().Err(err).Msg(msg)
}

// With returns a logger tagged with a component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", component).Logger()}
}

// LogQuery logs a snapshot query with structured fields.
func (l *Logger) LogQuery(operation string, duration time.Duration, rowCount int, err error) {
	if err != nil {
		l.zlog.Error().
			Str("component", "snapshot").
			Str("operation", operation).
			Dur("duration_ms", duration).
			Err(err).
			Msg("Query failed")
		return
	}
	l.zlog.Debug().
		Str("component", "snapshot").
		Str("operation", operation).
		Dur("duration_ms", duration).
		Int("row_count", rowCount).
		Msg("Query completed")
}

// LogSkippedFilter records a filter that could not be applied.
func (l *Logger) LogSkippedFilter(id, reason string) {
	l.zlog.Debug().
		Str("component", "filter").
		Str("filter", id).
		Str("reason", reason).
		Msg("Filter skipped")
}
