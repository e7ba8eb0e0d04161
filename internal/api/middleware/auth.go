package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"greendrake/freight/internal/auth"
)

const (
	// ContextKeyUserID holds the key for the session user's int64 ID in Gin context.
	ContextKeyUserID = "userID"
	// ContextKeyUserEmail holds the key for the session user's email in Gin context.
	ContextKeyUserEmail = "userEmail"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil || claims.UserID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUserEmail, claims.Email)
		c.Next()
	}
}

// UserID returns the session user set by AuthMiddleware.
func UserID(c *gin.Context) (int64, bool) {
	id := c.GetInt64(ContextKeyUserID)
	return id, id > 0
}
