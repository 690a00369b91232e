package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/estudaia-api/internal/middleware"
	"github.com/noah-isme/estudaia-api/internal/models"
)

func userFromContext(c *gin.Context) *models.UserProfile {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.UserProfile)
	if !ok {
		return nil
	}
	return user
}
