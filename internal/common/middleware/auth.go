package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"qai-backend/internal/common/auth"
	apperrors "qai-backend/internal/common/errors"
)

// TokenParser resolves a bearer token into claims.
type TokenParser interface {
	Parse(signed string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's id, username and role on the context.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		signed, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(signed) == "" {
			WriteError(c, apperrors.NewUnauthorizedError("missing bearer token"))
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(signed))
		if err != nil {
			WriteError(c, apperrors.NewUnauthorizedError("invalid token"))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID())
		c.Set(ContextKeyUsername, claims.Username)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth. Only callers whose token carries
// the stored admin role pass.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			WriteError(c, apperrors.NewUnauthorizedError("missing bearer token"))
			return
		}

		if c.GetString(ContextKeyRole) != auth.RoleAdmin {
			WriteError(c, apperrors.NewForbiddenError("admin access required"))
			return
		}
		c.Next()
	}
}
