package middleware

import (
	"time"

	"FinScope/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs every request at info, 5xx at error, and slow requests at warn.
func RequestLogging(l *logger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	if l == nil {
		l = logger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			latency := time.Since(start)
			status := c.Response().Status
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", routeLabel(c)),
				logger.String("remote", c.RealIP()),
				logger.Int("status", status),
				logger.Duration("duration_ms", latency),
				logger.Int64("bytes", c.Response().Size),
			}

			switch {
			case status >= 500:
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && latency >= slowThreshold:
				l.Warn("http request slow", fields...)
			default:
				l.Info("http request", fields...)
			}
			return nil
		}
	}
}
