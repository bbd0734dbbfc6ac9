package store

import (
	"context"
	"log/slog"
	"time"
)

// LoggerMiddleware logs every plain action with the state before and after
// it at debug level. When enabled is false, or logger is nil, it passes
// actions through untouched; production builds install it disabled.
//
// Install it after ThunkMiddleware: thunks are not logged, only the plain
// actions they dispatch.
func LoggerMiddleware[S any](logger *slog.Logger, enabled bool) Middleware[S] {
	return func(api API[S]) func(next Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			if !enabled || logger == nil {
				return next
			}
			return func(ctx context.Context, action Action) any {
				typ := action.ActionType()
				logger.DebugContext(ctx, "action dispatch",
					"action", typ,
					"prev_state", api.GetState())

				start := time.Now()
				result := next(ctx, action)

				logger.DebugContext(ctx, "action reduced",
					"action", typ,
					"next_state", api.GetState(),
					"duration", time.Since(start))
				return result
			}
		}
	}
}
