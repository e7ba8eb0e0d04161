package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsAllowHeaders = strings.Join([]string{
		"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Accept", "Origin",
		"Cache-Control", "X-Requested-With", HeaderFingerprint, HeaderSPASession, HeaderCaptchaChallenge, HeaderHumanToken,
	}, ", ")
	// X-C-T carries a freshly issued human token; Content-Disposition names the template download.
	corsExposeHeaders = HeaderHumanToken + ", Content-Disposition"
)

// CORSMiddleware answers for the configured origins. A "*" entry allows any
// origin; otherwise the request origin is echoed back only when listed.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	anyOrigin := slices.Contains(allowedOrigins, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case anyOrigin:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(allowedOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		c.Header("Access-Control-Expose-Headers", corsExposeHeaders)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
