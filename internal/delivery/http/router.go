package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/delivery/http/middleware"
	"github.com/pressmill/pressmill/internal/usecase"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(
	triggerUC *usecase.TriggerUsecase,
	healthChecks map[string]HealthChecker,
	logger *zap.Logger,
	rateLimitPerMin int,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.BodySizeLimit(maxBodyBytes))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Health check (no rate limiting)
		healthHandler := NewHealthHandler(healthChecks, logger)
		v1.GET("/health", healthHandler.Health)

		// Workflow triggers (with rate limiting)
		triggerHandler := NewTriggerHandler(triggerUC, logger)
		limited := v1.Group("")
		limited.Use(middleware.RateLimiter(rateLimitPerMin))
		{
			limited.POST("/sites/provision", triggerHandler.ProvisionSite)
			limited.POST("/products/analyze", triggerHandler.AnalyzeProduct)
			limited.POST("/articles/generate", triggerHandler.GenerateArticle)
			limited.POST("/publish", triggerHandler.SyncPublish)
		}

		// Status polling
		v1.GET("/jobs/:id", triggerHandler.GetJob)
		v1.GET("/sites/availability", triggerHandler.CheckAvailability)
	}

	return router
}
