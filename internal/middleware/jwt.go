package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mphomathabathe/Baobab/internal/auth"
	"github.com/mphomathabathe/Baobab/pkg/response"
)

// Gin context keys set by JWT.
const (
	ContextUserID    = "user_id" // uint
	ContextUserRole  = "user_role"
	ContextUserEmail = "user_email"
)

// JWT authenticates "Authorization: Bearer <token>" and stores the claims in the gin context.
// Requests without a valid token stop with 401.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, msg := bearerToken(c.GetHeader("Authorization"))
		if msg != "" {
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

// bearerToken extracts the token, or returns the client message explaining why it cannot.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", "invalid authorization header"
	}
	return strings.TrimSpace(token), ""
}
