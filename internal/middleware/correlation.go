package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"query-gateway/internal/utils"
)

const (
	CorrelationIDKey    = "correlation_id"
	CorrelationIDHeader = "X-Correlation-ID"
)

type correlationIDContextKey struct{}

func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Reuse the caller's id when it sends one
		correlationID := c.GetHeader(CorrelationIDHeader)
		if !utils.AcceptableCorrelationID(correlationID) {
			correlationID = utils.NewCorrelationID()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Header(CorrelationIDHeader, correlationID)

		ctx := context.WithValue(c.Request.Context(), correlationIDContextKey{}, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetCorrelationID returns the id assigned to the current request
func GetCorrelationID(c *gin.Context) string {
	if id, ok := c.Get(CorrelationIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// CorrelationIDFromContext returns the id stored on a request context
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDContextKey{}).(string)
	return id
}
