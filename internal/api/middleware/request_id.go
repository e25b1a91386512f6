package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/logger"
)

const (
	RequestIDKey    = "requestID"
	RequestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
)

// RequestID tags each request with an id, reusing a well-formed incoming
// X-Request-ID, and stores a request-scoped logger in the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.NewString()
		}
		c.Set(RequestIDKey, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Set(loggerKey, logger.Component("api").WithField("request_id", rid))
		c.Next()
	}
}

// GetRequestLogger retrieves the request-scoped logger from context or the global logger
func GetRequestLogger(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logger.Component("api")
}
