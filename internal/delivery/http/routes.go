package http

import (
	"github.com/gin-gonic/gin"
	"github.com/productstudio/backend/config"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = maxUploadBytes

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger.Named("http")))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/categories", handler.ListCategories)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handler.CreateSession)
			sessions.GET("/:id", handler.GetSession)
			sessions.DELETE("/:id", handler.DeleteSession)

			runs := sessions.Group("/:id/runs")
			{
				runs.POST("/csv", handler.StartCSVRun)
				runs.POST("/search", handler.StartSearchRun)
				runs.POST("/url", handler.StartURLRun)
			}

			sessions.POST("/:id/reset", handler.ResetSession)
			sessions.PATCH("/:id/products/:pid", handler.UpdateProduct)
			sessions.POST("/:id/products/:pid/regenerate", handler.RegenerateProduct)
			sessions.POST("/:id/export", handler.ExportProducts)
		}
	}

	return router
}
