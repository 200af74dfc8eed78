package api

import (
	"github.com/gin-gonic/gin"

	"github.com/arbordesk/notify/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/stats", handler.Stats)
		group.GET("/connections", handler.Connections)

		group.POST("", handler.Create)
		group.POST("/read-all", handler.MarkAllRead)
		group.POST("/:id/read", handler.MarkRead)
		group.POST("/:id/unread", handler.MarkUnread)
		group.POST("/:id/interaction", handler.Interact)

		group.DELETE("/:id", handler.Delete)
		group.DELETE("", handler.ClearAll)
	}
}
