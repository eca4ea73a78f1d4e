package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	naimatauth "github.com/amnashah110/naimat-auth"
)

const contextUserIDKey = "userID"

// requestContext returns the request context with the client IP attached,
// so engine throttles and audit events see it.
func requestContext(c *gin.Context) context.Context {
	return naimatauth.WithClientIP(c.Request.Context(), c.ClientIP())
}

// AuthMiddleware validates the bearer access token and stores the user ID
// in the gin context.
func AuthMiddleware(engine *naimatauth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		userID, err := engine.ValidateAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}
