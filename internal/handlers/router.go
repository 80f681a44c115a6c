package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelance-tracker/internal/config"
	"freelance-tracker/internal/logger"
	"freelance-tracker/internal/metrics"
	"freelance-tracker/internal/middleware"
	"freelance-tracker/internal/realtime"
	"freelance-tracker/internal/services"
)

type RouterOptions struct {
	Config  *config.Config
	Tracker *services.Tracker
	Hub     *realtime.Hub
	Logger  *zap.Logger
	// UploadDir is served at /uploads when set (local blob backend).
	UploadDir string
	// Heartbeat overrides the SSE keep-alive interval.
	Heartbeat time.Duration
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func NewRouter(opts RouterOptions) *gin.Engine {
	log := logger.OrNop(opts.Logger)
	cfg := opts.Config

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logging(log),
		middleware.Metrics(),
		middleware.Recovery(log),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)

	router.GET("/health", HealthHandler)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if opts.UploadDir != "" {
		router.Static("/uploads", opts.UploadDir)
	}

	projectsHandler := NewProjectsHandler(opts.Tracker)
	ordersHandler := NewOrdersHandler(opts.Tracker, cfg.MaxUploadBytes)
	clientHandler := NewClientHandler(opts.Tracker)
	eventsHandler := NewEventsHandler(opts.Tracker, opts.Hub, cfg.CORSOrigins, opts.Heartbeat, log)

	// Freelancer API
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	api.POST("/projects", projectsHandler.CreateProject)
	api.GET("/projects", projectsHandler.ListProjects)
	api.GET("/projects/:project_id", projectsHandler.GetProject)
	api.PATCH("/projects/:project_id", projectsHandler.UpdateProject)
	api.DELETE("/projects/:project_id", projectsHandler.DeleteProject)
	api.POST("/projects/:project_id/token/regenerate", projectsHandler.RegenerateToken)
	api.POST("/projects/:project_id/token/revoke", projectsHandler.RevokeToken)

	api.POST("/projects/:project_id/orders", ordersHandler.CreateOrder)
	api.GET("/projects/:project_id/orders", ordersHandler.ListOrders)
	api.GET("/projects/:project_id/events", eventsHandler.ProjectEvents)

	api.PATCH("/orders/:order_id", ordersHandler.UpdateOrder)
	api.PUT("/orders/:order_id/status", ordersHandler.SetStatus)
	api.POST("/orders/:order_id/upload", ordersHandler.Upload)
	api.DELETE("/orders/:order_id", ordersHandler.DeleteOrder)

	// Client portal, authorized by the token in the path
	client := router.Group("/client/:token")
	client.GET("", clientHandler.View)
	client.POST("/orders/:order_id/comment", clientHandler.Comment)
	client.POST("/orders/:order_id/approve", clientHandler.Approve)
	client.GET("/events", eventsHandler.ClientEvents)
	client.GET("/ws", eventsHandler.ClientWebSocket)

	return router
}
