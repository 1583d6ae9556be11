package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mvoronin/laptopshop/internal/logging"
)

// RequestLogger injects a request-scoped logger into the context and
// emits one line per completed request. The request id may come from
// the client or from echo's RequestID middleware running before us.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := base.With(
				"method", c.Request().Method,
				"path", c.Path(),
				"url", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
				"user_agent", c.Request().UserAgent(),
			)
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}
			if rid != "" {
				l = l.With("request_id", rid)
			}

			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}
			status := c.Response().Status
			dur := time.Since(start)

			switch {
			case err != nil || status >= 500:
				l.LogAttrs(c.Request().Context(), slog.LevelError, "request completed",
					slog.Int("status", status), slog.Int64("duration_ms", dur.Milliseconds()), slog.Any("error", err))
			case status >= 400:
				l.LogAttrs(c.Request().Context(), slog.LevelWarn, "request completed",
					slog.Int("status", status), slog.Int64("duration_ms", dur.Milliseconds()))
			default:
				l.LogAttrs(c.Request().Context(), slog.LevelInfo, "request completed",
					slog.Int("status", status), slog.Int64("duration_ms", dur.Milliseconds()), slog.Int64("bytes", c.Response().Size))
			}
			return nil
		}
	}
}
