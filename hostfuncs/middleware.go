package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware is a function that wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next Handler) Handler

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware returns a middleware that converts handler panics
// into HostFunctionErrors instead of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) (resp any, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = nil
					err = PanicError(FunctionName(ctx), r)
				}
			}()
			return next(ctx, call)
		}
	}
}

// LoggingMiddleware returns a middleware that logs host function invocations.
// A nil logger uses slog.Default().
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) (any, error) {
			name := FunctionName(ctx)
			start := time.Now()
			resp, err := next(ctx, call)
			if err != nil {
				logger.WarnContext(ctx, "host function failed",
					"function", name, "duration", time.Since(start), "error", err)
			} else {
				logger.DebugContext(ctx, "host function completed",
					"function", name, "duration", time.Since(start))
			}
			return resp, err
		}
	}
}
