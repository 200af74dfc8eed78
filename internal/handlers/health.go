package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arbordesk/notify/internal/database"
	"github.com/arbordesk/notify/internal/realtime"
	"github.com/arbordesk/notify/pkg/response"
)

// Health reports readiness: database connectivity plus a snapshot of the
// realtime hub's occupancy.
func Health(db *gorm.DB, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		httpStatus := http.StatusOK

		dbState := "ok"
		if err := database.Ping(db); err != nil {
			dbState = "unreachable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		payload := gin.H{
			"status":   status,
			"database": dbState,
		}
		if hub != nil {
			payload["realtime"] = gin.H{
				"connections":     hub.ConnectionCount(),
				"connected_users": hub.ConnectedUserCount(),
			}
		}

		if httpStatus == http.StatusOK {
			response.Success(c, httpStatus, payload)
			return
		}
		c.JSON(httpStatus, response.Response{Success: false, Data: payload})
	}
}
