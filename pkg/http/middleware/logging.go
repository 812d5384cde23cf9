package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	applogger "StockCast/pkg/logger"
)

// RequestLogging logs HTTP requests and tags each with an X-Request-ID.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			res.Header().Set(echo.HeaderXRequestID, rid)

			err := next(c)

			if l != nil {
				l.Debug("http request",
					applogger.String("request_id", rid),
					applogger.String("method", req.Method),
					applogger.String("uri", req.RequestURI),
					applogger.String("remote", c.RealIP()),
					applogger.Int("status", res.Status),
					applogger.Duration("latency", time.Since(start)),
				)
			}

			return err
		}
	}
}
