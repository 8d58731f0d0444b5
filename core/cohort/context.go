package cohort

import (
	"context"
	"time"

	"github.com/huangsam/cohortstats/internal/logger"
)

// Context keys for query options
type contextKey string

const (
	nowKey    contextKey = "now"
	loggerKey contextKey = "logger"
)

// WithNow sets the evaluation instant used for ages and durations.
func WithNow(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, nowKey, now.UTC())
}

// Now returns the evaluation instant from context
func Now(ctx context.Context) time.Time {
	if now, ok := ctx.Value(nowKey).(time.Time); ok {
		return now
	}
	return time.Now().UTC() // default: wall clock
}

// WithLogger sets the logger queries report skipped filters to.
func WithLogger(ctx context.Context, l *logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Logger returns the logger from context
func Logger(ctx context.Context) *logger.Logger {
	if l, ok := ctx.Value(loggerKey).(*logger.Logger); ok && l != nil {
		return l
	}
	return logger.Nop()
}
