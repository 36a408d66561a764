package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/docnorm/pkg/logger"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

var accessLog = logger.Named("http")

// RequestID tags every request with an id, reusing a well-formed incoming
// X-Request-ID, and logs the request at debug level once it completes.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()
		accessLog.Debugf("%s %s %s -> %d (%s)", id, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
