package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"

	"skillstream/services/chat-api/internal/utils/platformerrors"
)

const (
	// UserIDHeader carries the authenticated user, set by the platform
	// gateway after token verification. This service trusts it as-is.
	UserIDHeader = "X-User-ID"
	// UserIDKey is the context key for the authenticated user.
	UserIDKey = "user_id"
)

// Identity requires the platform identity header on every request and
// exposes it to handlers via the gin context.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			platformerrors.WriteUnauthorized(c, "missing identity header")
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID retrieves the authenticated user from the context.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}
