package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/glintly/billing-go/pkg/observability"
)

// SafeGo executes a function in a goroutine with context cancellation,
// panic recovery and timeout enforcement.
//
// Use this instead of bare `go func()` for fire-and-forget work so a panic
// in a background task never takes down the caller.
//
// Example:
//
//	async.SafeGo(ctx, 5*time.Second, "usage refresh", logger, func(ctx context.Context) error {
//	    return store.Refresh(ctx)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context) error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			// Background work is advisory; log and move on.
			logger.WithField("task", taskName).WithError(err).Warn("background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, logger, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
