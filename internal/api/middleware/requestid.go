package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/aikernel/internal/shared/id"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID assigns every request an ID, reusing a valid inbound X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := id.RequestID(c.GetHeader(RequestIDHeader))
		if !rid.Valid() {
			rid = id.NewRequestID()
		}
		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid.String())
		c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestID, or a fresh one when the middleware is absent.
func GetRequestID(c *gin.Context) id.RequestID {
	if v, ok := c.Get(requestIDKey); ok {
		if rid, ok := v.(id.RequestID); ok {
			return rid
		}
	}
	return id.NewRequestID()
}
