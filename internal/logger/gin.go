package logger

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware logs one line per request.
func GinMiddleware(log Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
			"client":  c.ClientIP(),
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request", fields)
		case c.Writer.Status() >= 400:
			log.Warn("request", fields)
		default:
			log.Debug("request", fields)
		}
	}
}
