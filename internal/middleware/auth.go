package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/b3nzuk3/gameCity-sub001/internal/auth"
	"github.com/b3nzuk3/gameCity-sub001/internal/logger"
	"github.com/b3nzuk3/gameCity-sub001/internal/models"
	"github.com/b3nzuk3/gameCity-sub001/pkg/apperrors"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "user_role"
)

// AuthMiddleware validates the Bearer token and puts user id and role into
// the gin context. Requests without a valid token are rejected with 401.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWith(c, apperrors.NewUnauthorizedError("Authorization header required"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWith(c, apperrors.NewUnauthorizedError("Authorization header must be 'Bearer {token}'"))
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			abortWith(c, apperrors.ErrInvalidToken)
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, claims.Role)

		ctx := logger.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RoleMiddleware restricts a route group to the given roles. Must run after
// AuthMiddleware.
func RoleMiddleware(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(ContextRoleKey)
		if !exists {
			abortWith(c, apperrors.NewUnauthorizedError("Authentication required"))
			return
		}

		role, _ := roleVal.(string)
		for _, allowed := range roles {
			if role == string(allowed) {
				c.Next()
				return
			}
		}

		abortWith(c, apperrors.ErrInsufficientPermissions)
	}
}

// GetUserID returns the authenticated user's id from the gin context.
func GetUserID(c *gin.Context) (string, bool) {
	val, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}

// GetUserRole returns the authenticated user's role from the gin context.
func GetUserRole(c *gin.Context) string {
	val, exists := c.Get(ContextRoleKey)
	if !exists {
		return ""
	}
	role, _ := val.(string)
	return role
}

func abortWith(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPCode, gin.H{"error": appErr})
}
