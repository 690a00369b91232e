package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/response"
)

// RequireRoles enforces role-based access control. It must run after RequireSession.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		user, ok := value.(*models.UserProfile)
		if !ok || user == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[user.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "administrator access required"))
		c.Abort()
	}
}

// RequireAdmin is RequireRoles(models.RoleAdmin).
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
