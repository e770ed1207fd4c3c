package api

import (
	"net/http"

	analyticsDelivery "broadrange-backend/internal/analytics/delivery"
	"broadrange-backend/internal/auth/delivery"
	authUsecase "broadrange-backend/internal/auth/usecase"
	planDelivery "broadrange-backend/internal/plan/delivery"
	searchDelivery "broadrange-backend/internal/search/delivery"
	"broadrange-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

// Routes carries everything SetupRoutes mounts.
type Routes struct {
	AuthUsecase authUsecase.AuthUsecase
	SSEManager  *sse.Manager
	Plans       *planDelivery.PlanHandler
	Analytics   *analyticsDelivery.AnalyticsHandler
	Search      *searchDelivery.SearchHandler
	Settings    *RuntimeSettings
}

func SetupRoutes(r *gin.Engine, routes Routes) {
	authHandler := delivery.NewAuthHandler(routes.AuthUsecase)
	requireAuth := delivery.AuthMiddleware(routes.AuthUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE endpoint
		if routes.SSEManager != nil {
			api.GET("/events", requireAuth, func(c *gin.Context) {
				routes.SSEManager.ServeHTTP(c, c.GetString("userID"))
			})
		}

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
			auth.PATCH("/preferences", requireAuth, authHandler.UpdatePreferences)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(requireAuth)
		{
			fcm.POST("/register", authHandler.RegisterDeviceToken)
			fcm.DELETE("/:token", authHandler.UnregisterDeviceToken)
		}

		// Plans, tasks, analytics and search (protected)
		protected := api.Group("")
		protected.Use(requireAuth)
		if routes.Plans != nil {
			routes.Plans.RegisterRoutes(protected)
		}
		if routes.Analytics != nil {
			routes.Analytics.RegisterRoutes(protected)
		}
		if routes.Search != nil {
			routes.Search.RegisterRoutes(protected)
		}

		// Settings routes (protected) - runtime AI configuration
		if routes.Settings != nil {
			settings := api.Group("/settings")
			settings.Use(requireAuth)
			{
				settings.GET("/ai", routes.Settings.GetAISettings)
				settings.PUT("/ollama", routes.Settings.UpdateOllamaSettings)
				settings.POST("/ollama/test", routes.Settings.TestOllamaConnection)
			}
		}
	}
}
