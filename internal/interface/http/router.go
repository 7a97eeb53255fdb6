package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harvesta/companion/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, nil, handler.logger),
	)

	router.GET("/healthz", handler.Health)

	api := router.Group("/api/v1")
	api.POST("/sessions", handler.CreateSession)

	authed := api.Group("")
	authed.Use(sessionMiddleware(handler.sessions))
	{
		authed.DELETE("/sessions/current", handler.CloseSession)
		authed.GET("/notices", handler.Notices)

		screens := authed.Group("/screens")
		screens.GET("/dashboard", handler.Dashboard)
		screens.POST("/dashboard/triggers", handler.TriggerDashboard)
		screens.GET("/harvest", handler.Harvest)
		screens.POST("/harvest/triggers", handler.TriggerHarvest)
		screens.GET("/history", handler.History)
		screens.POST("/history/triggers", handler.TriggerHistory)

		upload := screens.Group("/upload")
		upload.Use(bodyLimitMiddleware(cfg.HTTP.MaxUploadBytes))
		upload.GET("", handler.Upload)
		upload.POST("/images", handler.StageImages)
		upload.POST("/capture", handler.CaptureImage)
		upload.DELETE("/images/:id", handler.RemoveImage)
		upload.DELETE("/images", handler.ClearImages)
		upload.POST("/submit", handler.SubmitUpload)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
