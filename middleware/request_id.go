package middleware

import (
	"supplement-program-api/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDKey = "X-Request-ID"

// RequestIDMiddleware adds a unique request ID to each request and a logger carrying it.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDKey)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Request.Header.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)
		c.Set("logger", config.Logger.With(zap.String("request_id", requestID)))

		c.Next()
	}
}

// Logger returns the request-scoped logger.
func Logger(c *gin.Context) *zap.Logger {
	if logger, ok := c.Get("logger"); ok {
		if l, ok := logger.(*zap.Logger); ok {
			return l
		}
	}
	return config.Logger
}

// AccessLog writes one line per request after it completes.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		Logger(c).Info("request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()))
	}
}
