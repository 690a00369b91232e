package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/estudaia-api/internal/middleware"
)

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Auth        *AuthHandler
	Courses     *CourseHandler
	Disciplines *DisciplineHandler
	Chat        *ChatHandler
	Export      *ExportHandler
}

// RegisterRoutes mounts the API under group. Reads need a session; catalog writes and
// exports also need the admin role.
func RegisterRoutes(group gin.IRouter, sessions middleware.SessionReader, h Handlers) {
	auth := group.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/session", h.Auth.Session)
	auth.POST("/refresh", middleware.RequireSession(sessions), h.Auth.Refresh)

	secured := group.Group("")
	secured.Use(middleware.RequireSession(sessions))
	admin := middleware.RequireAdmin()

	courses := secured.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.GET("/:id", h.Courses.Get)
	courses.GET("/:id/disciplines", h.Courses.Disciplines)
	courses.POST("", admin, h.Courses.Create)
	courses.PUT("/:id", admin, h.Courses.Update)
	courses.DELETE("/:id", admin, h.Courses.Delete)

	disciplines := secured.Group("/disciplines")
	disciplines.GET("", h.Disciplines.List)
	disciplines.GET("/:id", h.Disciplines.Get)
	disciplines.POST("", admin, h.Disciplines.Create)
	disciplines.PUT("/:id", admin, h.Disciplines.Update)
	disciplines.DELETE("/:id", admin, h.Disciplines.Delete)

	chat := secured.Group("/chat/sessions")
	chat.POST("", h.Chat.Start)
	chat.GET("/:id", h.Chat.Get)
	chat.POST("/:id/messages", h.Chat.Send)
	chat.DELETE("/:id", h.Chat.Close)

	secured.GET("/catalog/export", admin, h.Export.Catalog)
}

// RegisterOps mounts health, readiness and, when enabled, Prometheus metrics.
func RegisterOps(r gin.IRouter, h *MetricsHandler, exposeMetrics bool) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	if exposeMetrics {
		r.GET("/metrics", h.Prometheus)
	}
}
