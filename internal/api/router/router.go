package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulsedesk/notifyq/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "notifyq",
		})
	})

	notificationHandler := handler.NewNotificationHandler(deps)

	v1 := r.Group("/api/v1")
	{
		notifications := v1.Group("/notifications")
		{
			notifications.POST("", notificationHandler.CreateNotification)
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/stats", notificationHandler.GetStats)
			notifications.GET("/:job_id", notificationHandler.GetNotification)
			notifications.GET("/:job_id/status", notificationHandler.GetNotificationStatus)
			notifications.POST("/:job_id/cancel", notificationHandler.CancelNotification)
		}

		v1.GET("/scheduler/status", notificationHandler.GetSchedulerStatus)
		v1.POST("/maintenance/cleanup", notificationHandler.Cleanup)
	}

	return r
}
