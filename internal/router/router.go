package router

import (
	"time"

	"github.com/gearbox-dev/gearbox/internal/handlers"
	"github.com/gearbox-dev/gearbox/internal/middleware"
	"github.com/gearbox-dev/gearbox/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", middleware.AuthMiddleware(), handlers.NotificationFeed)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.CreateUser)
			auth.POST("/login", handlers.LoginUser)
			auth.POST("/logout", handlers.LogoutUser)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		authed := api.Group("", middleware.AuthMiddleware())
		{
			// Delivery channels
			authed.POST("/channels", handlers.CreateChannel)
			authed.GET("/channels", handlers.ListChannels)
			authed.GET("/channels/schemas", handlers.ListChannelSchemas)
			authed.PUT("/channels/:channel_id", handlers.UpdateChannel)
			authed.DELETE("/channels/:channel_id", handlers.DeleteChannel)

			// Notification rules
			authed.POST("/rules", handlers.CreateRule)
			authed.GET("/rules", handlers.ListRules)
			authed.PUT("/rules/:rule_id", handlers.UpdateRule)
			authed.DELETE("/rules/:rule_id", handlers.DeleteRule)

			// Notification log / in-app feed
			authed.GET("/notifications", handlers.ListNotifications)
			authed.GET("/notifications/unread", handlers.UnreadCount)
			authed.POST("/notifications/:notification_id/read", handlers.MarkRead)
			authed.POST("/notifications/read-all", handlers.MarkAllRead)

			// Global settings
			authed.GET("/settings", handlers.GetSettings)
			authed.PUT("/settings", handlers.UpdateSettings)

			// Vehicles and service intervals
			authed.POST("/vehicles", handlers.CreateVehicle)
			authed.GET("/vehicles", handlers.ListVehicles)
			authed.PUT("/vehicles/:vehicle_id", handlers.UpdateVehicle)
			authed.DELETE("/vehicles/:vehicle_id", handlers.DeleteVehicle)
			authed.POST("/vehicles/:vehicle_id/odometer", handlers.UpdateOdometer)

			authed.POST("/vehicles/:vehicle_id/intervals", handlers.CreateInterval)
			authed.GET("/vehicles/:vehicle_id/intervals", handlers.ListIntervals)
			authed.PUT("/vehicles/:vehicle_id/intervals/:interval_id", handlers.UpdateInterval)
			authed.DELETE("/vehicles/:vehicle_id/intervals/:interval_id", handlers.DeleteInterval)
			authed.POST("/vehicles/:vehicle_id/intervals/:interval_id/service", handlers.RecordService)
		}
	}

	return r
}
