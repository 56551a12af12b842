package context

import (
	"context"
	"log/slog"
)

type contextkey string

const (
	loggerKey contextkey = "logger"
)

// WithLogger binds a request-scoped logger to ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger retrieves the request-scoped logger from ctx.
// Returns slog.Default() if none was set.
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}
