package http

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cartgenie/backend/config"
	"github.com/cartgenie/backend/internal/logger"
)

var registerTagNameOnce sync.Once

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log *zap.Logger) *gin.Engine {
	log = logger.OrNop(log)

	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	registerTagNameOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
		}
	})

	router := gin.New()
	router.RedirectTrailingSlash = false

	// Global middleware
	router.Use(ZapRecovery(log))
	router.Use(ZapLogger(log.Named("http")))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.POST("/optimize-cart", handler.OptimizeCart)
		v1.POST("/optimize-cart/", handler.OptimizeCart)
	}

	return router
}
