package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-leave-api/internal/middleware"
	"github.com/noah-isme/sma-leave-api/internal/models"
)

// Routes groups the handlers mounted under the API prefix.
type Routes struct {
	Auth      *AuthHandler
	Directory *DirectoryHandler
	Leave     *LeaveHandler
	// Authenticate resolves the bearer token; normally middleware.JWT.
	Authenticate gin.HandlerFunc
}

// Register mounts the API on group.
func (r Routes) Register(group *gin.RouterGroup) {
	auth := group.Group("/auth")
	auth.POST("/register", r.Auth.Register)
	auth.POST("/login", r.Auth.Login)
	auth.POST("/logout", r.Authenticate, r.Auth.Logout)
	auth.GET("/me", r.Authenticate, r.Auth.Me)

	protected := group.Group("")
	protected.Use(r.Authenticate)
	protected.GET("/teachers", r.Directory.Teachers)

	requesters := middleware.RequireRoles(models.RoleStudent, models.RoleTeacher)
	teachers := middleware.RequireRoles(models.RoleTeacher)
	admins := middleware.RequireRoles(models.RoleAdmin)
	deciders := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)

	leaves := protected.Group("/leave-requests")
	leaves.POST("", requesters, r.Leave.Submit)
	leaves.GET("", admins, r.Leave.All)
	leaves.GET("/mine", r.Leave.Mine)
	leaves.GET("/pending/teacher", teachers, r.Leave.PendingTeacher)
	leaves.GET("/pending/admin", admins, r.Leave.PendingAdmin)
	leaves.GET("/summary", r.Leave.Summary)
	leaves.GET("/export", admins, r.Leave.Export)
	leaves.GET("/:id", r.Leave.Get)
	leaves.POST("/:id/decision", deciders, r.Leave.Decide)
}
