package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/mphomathabathe/Baobab/pkg/response"
)

// RequireRole lets the request through only when the JWT role is one of roles.
// Mount after JWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if s, _ := role.(string); !slices.Contains(roles, s) {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
