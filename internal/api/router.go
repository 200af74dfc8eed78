package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/arbordesk/notify/internal/app"
	iauth "github.com/arbordesk/notify/internal/auth"
	"github.com/arbordesk/notify/internal/gateway"
	"github.com/arbordesk/notify/internal/handlers"
	"github.com/arbordesk/notify/internal/middleware"
	"github.com/arbordesk/notify/internal/realtime"
	"github.com/arbordesk/notify/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, service *services.NotificationService, hub *realtime.Hub, gw *gateway.Gateway) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if service == nil {
		return nil, fmt.Errorf("notification service must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db, hub))

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	handler, err := handlers.NewNotificationHandler(service, hub, gw)
	if err != nil {
		return nil, err
	}

	// The stream endpoint is public at the routing layer: the gateway runs
	// its own credential handshake before any room is joined.
	r.GET("/api/notifications/stream", handler.Stream)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	registerNotificationRoutes(api, handler)

	return r, nil
}
