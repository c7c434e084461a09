package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestID generates or extracts correlation IDs for request tracing
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// StructuredLogger logs every request with structured fields
func StructuredLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		requestID, _ := c.Get("request_id")
		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"ip":         c.ClientIP(),
			"request_id": requestID,
		})

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
		} else if c.Writer.Status() >= 500 {
			entry.Error("Request failed")
		} else {
			entry.Info("Request handled")
		}
	}
}
