package kit

import (
	"context"
	"log/slog"
	"time"
)

// Instrument logs every endpoint call with its transport, elapsed time and
// outcome. Request payloads are never logged; supplier catalogs are customer
// data.
func Instrument(logger *slog.Logger, action string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, request)

			attrs := []any{
				"action", action,
				"transport", GetTransport(ctx),
				"elapsed", time.Since(start),
			}
			if id := GetRequestID(ctx); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			if err != nil {
				logger.Error("endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Info("endpoint ok", attrs...)
			}
			return resp, err
		}
	}
}
