package main

import (
	"github.com/gin-gonic/gin"
	"github.com/pmpulse/backend/internal/handlers"
	"github.com/pmpulse/backend/internal/middleware"
	"github.com/pmpulse/backend/internal/models"
	"github.com/pmpulse/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for report generation
	generateLimiter := middleware.NewRateLimiter(1, 3)

	// Health check
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Report settings and generation
			summaryHandler := handlers.NewSummaryHandler(models.GetDB(), svc.cfg)
			protected.GET("/summary/settings", summaryHandler.GetSettings)
			protected.PUT("/summary/settings", summaryHandler.UpdateSettings)
			protected.POST("/summary/generate", generateLimiter.Middleware(), summaryHandler.Generate)
			protected.GET("/summary/history", summaryHandler.History)
			protected.GET("/summary/reports/:id", summaryHandler.GetReport)
			protected.GET("/summary/images/:name", summaryHandler.ServeImage)

			// GitLab instances and watchlists
			gitlabHandler := handlers.NewGitLabHandler(models.GetDB())
			protected.GET("/gitlab/instances", gitlabHandler.ListInstances)
			protected.POST("/gitlab/instances", gitlabHandler.CreateInstance)
			protected.PUT("/gitlab/instances/:id", gitlabHandler.UpdateInstance)
			protected.DELETE("/gitlab/instances/:id", gitlabHandler.DeleteInstance)
			protected.GET("/gitlab/instances/:id/watchlist", gitlabHandler.ListWatchlist)
			protected.POST("/gitlab/instances/:id/watchlist", gitlabHandler.AddWatchlistEntry)
			protected.PUT("/gitlab/watchlist/:entryId", gitlabHandler.UpdateWatchlistEntry)
			protected.DELETE("/gitlab/watchlist/:entryId", gitlabHandler.DeleteWatchlistEntry)

			// Holiday calendars
			holidayHandler := handlers.NewHolidayHandler()
			protected.GET("/holidays/countries", holidayHandler.ListCountries)
			protected.GET("/holidays/check", holidayHandler.CheckWorkday)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			// Users
			userHandler := handlers.NewUserHandler(models.GetDB())
			admin.GET("/users", userHandler.List)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)

			// LLM Configs
			llmConfigHandler := handlers.NewLLMConfigHandler(models.GetDB())
			admin.GET("/llm-configs", llmConfigHandler.List)
			admin.GET("/llm-configs/active", llmConfigHandler.GetActive)
			admin.GET("/llm-configs/:id", llmConfigHandler.GetByID)
			admin.POST("/llm-configs", llmConfigHandler.Create)
			admin.PUT("/llm-configs/:id", llmConfigHandler.Update)
			admin.DELETE("/llm-configs/:id", llmConfigHandler.Delete)

			// System Config
			systemConfigHandler := handlers.NewSystemConfigHandler(models.GetDB())
			admin.GET("/system-config/ldap", systemConfigHandler.GetLDAPConfig)
			admin.PUT("/system-config/ldap", systemConfigHandler.UpdateLDAPConfig)
			admin.GET("/system-config/redmine", systemConfigHandler.GetRedmineConfig)
			admin.PUT("/system-config/redmine", systemConfigHandler.UpdateRedmineConfig)
			admin.GET("/system-config/schedule", systemConfigHandler.GetSummaryScheduleConfig)
			admin.PUT("/system-config/schedule", systemConfigHandler.UpdateSummaryScheduleConfig)

			// System Logs
			systemLogHandler := handlers.NewSystemLogHandler(models.GetDB())
			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)
		}
	}
}
