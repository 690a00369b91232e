package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/response"
)

// ContextUserKey is the gin context key storing the session's user profile.
const ContextUserKey = "currentUser"

// SessionReader is the part of the session manager the gate needs.
type SessionReader interface {
	IsAuthenticated() bool
	CurrentUser() *models.UserProfile
}

// RequireSession lets a request through only while the session manager holds an
// authenticated user, and stores a copy of that user on the context.
func RequireSession(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sessions.IsAuthenticated() {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "login required"))
			c.Abort()
			return
		}
		user := sessions.CurrentUser()
		if user == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "login required"))
			c.Abort()
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}
