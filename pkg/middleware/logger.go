package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"site-entry/pkg/contextkeys"
)

// InjectLogger puts the logger into the echo context and tags the request
// with an id that services can log.
func InjectLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID := c.Request().Header.Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)
			ctx := context.WithValue(c.Request().Context(), contextkeys.RequestIDKey, reqID)
			c.SetRequest(c.Request().WithContext(ctx))

			reqLogger := logger.With(zap.String("request_id", reqID))
			c.Set("logger", reqLogger)

			start := time.Now()
			err := next(c)
			reqLogger.Info("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}
