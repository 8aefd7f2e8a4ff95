package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/controllers"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models/dto"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	profileController *controllers.ProfileController,
	gradebookController *controllers.GradebookController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.RefreshToken)
	}

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		// Profile
		authenticated.GET("/profile", profileController.GetProfile)
		authenticated.PUT("/profile/active-child", profileController.SetActiveChild)

		// Gradebook read shapes
		authenticated.GET("/grades", gradebookController.CurrentGrades)
		authenticated.GET("/assignments", gradebookController.Assignments)
		authenticated.GET("/upcoming", gradebookController.Upcoming)
		authenticated.GET("/recent-activity", gradebookController.RecentActivity)
	}

	// Health check endpoint (public)
	v1.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, dto.APIResponse{
			Data:      gin.H{"status": "ok"},
			Timestamp: time.Now(),
		})
	})
}
