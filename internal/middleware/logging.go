package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger logs every request once it completes. Handler errors are
// passed to the echo error handler first so the logged status is final.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			attrs := []any{
				"method", req.Method,
				"uri", req.RequestURI,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if user := CurrentUser(c); user != nil {
				attrs = append(attrs, "user", user.Username)
			}
			if c.Response().Status >= 500 {
				slog.Error("Request completed", attrs...)
			} else {
				slog.Info("Request completed", attrs...)
			}
			return nil
		}
	}
}
