package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"banko/internal/auth"
)

// Auth validates the Bearer token and stores the caller's user ID on the
// request context. Websocket clients cannot set headers from browsers, so
// a `token` query parameter is accepted as a fallback.
func Auth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
				return
			}
			token = parts[1]
		} else if q := c.Query("token"); q != "" {
			token = q
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		userID, err := authService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(identityKey, userID)
		c.Next()
	}
}
