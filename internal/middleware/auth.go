package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shadowbot/internal/services"
)

// TokenParser validates API session tokens issued by the verify flow.
type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

// Auth guards a route group with bearer-token authentication. The verified
// identity is exposed to handlers via the context.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if tokenStr == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		claims, err := parser.ParseToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("identity", claims.Identity)
		c.Set("is_admin", claims.IsAdmin)
		c.Next()
	}
}
