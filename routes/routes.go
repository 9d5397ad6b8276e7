package routes

import (
	"net/http"

	"supplement-program-api/config"
	"supplement-program-api/controllers"
	"supplement-program-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, cfg *config.AppConfig) {
	router.GET("/metrics", middleware.MetricsHandler())

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Health check
			public.GET("/health", healthCheck)

			// QR landing and compliance form; the package token is the only credential
			public.GET("/public/packages/:token", controllers.GetPublicPackage)
			public.POST("/public/packages/:token/compliance", controllers.SubmitPackageCompliance)
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
		{
			protected.POST("/enrollments", middleware.RequireRole(middleware.RoleProgramAdmin), controllers.CreateEnrollment)
			protected.GET("/enrollments/:id", controllers.GetEnrollment)

			protected.POST("/supplies/:id/deliver",
				middleware.RequireRole(middleware.RoleLogistics, middleware.RoleOrgAdmin, middleware.RoleProgramAdmin),
				controllers.MarkSupplyDelivered)

			protected.POST("/screening-events",
				middleware.RequireRole(middleware.RoleProgramAdmin, middleware.RoleOrgAdmin, middleware.RoleTeacher),
				controllers.CreateScreeningEvent)

			organizations := protected.Group("/organizations/:id")
			{
				organizations.GET("/enforcement", controllers.GetOrganizationEnforcement)
				organizations.GET("/shippable-supplies",
					middleware.RequireRole(middleware.RoleLogistics, middleware.RoleManufacturer, middleware.RoleProgramAdmin),
					controllers.GetShippableSupplies)
			}

			protected.GET("/milestones", middleware.RequireRole(middleware.RoleOrgAdmin, middleware.RoleProgramAdmin), controllers.GetMilestonesDashboard)

			// Program administration
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(middleware.RoleProgramAdmin))
			{
				admin.GET("/milestones/overview", controllers.GetMilestonesOverview)
				admin.POST("/organizations/:id/evaluate", controllers.EvaluateOrganization)
				admin.POST("/jobs/:name/run", controllers.RunJob)
				admin.GET("/jobs/runs", controllers.ListJobRuns)
			}
		}
	}
}

func healthCheck(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if config.DB == nil {
		status, code = "degraded", http.StatusServiceUnavailable
	} else if sqlDB, err := config.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"message": "Supplement Program API is running",
	})
}
