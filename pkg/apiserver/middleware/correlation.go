package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderCorrelationID = "X-Correlation-Id"
	correlationKey      = "correlation_id"
)

// CorrelationID reuses the caller's correlation id or generates one, and
// echoes it on the response before any handler writes.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderCorrelationID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationKey, id)
		c.Header(HeaderCorrelationID, id)
		c.Next()
	}
}

func CorrelationIDFrom(c *gin.Context) string {
	return c.GetString(correlationKey)
}
