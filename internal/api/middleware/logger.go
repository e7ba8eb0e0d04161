package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"greendrake/freight/internal/utils"
)

// RequestLogger logs every request with its status and timing.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}
		if id, ok := UserID(c); ok {
			fields["user_id"] = id
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		utils.Info("HTTP Request", fields)
	}
}
