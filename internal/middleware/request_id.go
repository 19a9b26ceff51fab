package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDKey = "request_id"

// Incoming X-Request-ID values longer than this are replaced, which keeps
// attacker-controlled strings out of the logs.
const requestIDMaxLen = 64

// RequestID propagates the caller's X-Request-ID or generates a fresh UUID,
// storing it in the Gin context and echoing it back on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(RequestIDKey, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}
