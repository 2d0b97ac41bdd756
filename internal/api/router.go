package api

import (
	"time"

	"recipe-ai/internal/api/handlers/health"
	recipeHandler "recipe-ai/internal/api/handlers/recipe"
	"recipe-ai/internal/api/middleware"
	"recipe-ai/internal/infrastructure/config"
	"recipe-ai/internal/infrastructure/monitoring"
	"recipe-ai/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 請求體大小上限 (圖片上限加上 multipart 開銷)
const multipartOverhead = 1 << 20

// Dependencies 路由需要的服務
type Dependencies struct {
	Detector  recipeHandler.IngredientDetector
	Generator recipeHandler.RecipeGenerator
	Uploader  recipeHandler.ImageUploader
	Readiness map[string]health.Pinger
}

// SetupRouter 設置路由，回傳的 cleanup 須在關閉時呼叫
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, func()) {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(monitoring.HTTPMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	maxBodySize := cfg.Image.MaxSizeBytes + multipartOverhead
	router.Use(middleware.BodySizeLimit(maxBodySize))

	healthHandler := health.NewHandler(cfg.App.Version, deps.Readiness)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(monitoring.Handler()))

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	v1.Use(dedup.Middleware())
	{
		h := recipeHandler.NewHandler(deps.Detector, deps.Generator, deps.Uploader)

		// 上傳圖片
		v1.POST("/images", h.HandleUploadImage)

		// 食材辨識
		v1.POST("/ingredients/detect", h.HandleDetectIngredients)

		// 食譜生成
		v1.POST("/recipes/generate", h.HandleGenerateRecipe)
	}

	common.LogInfo("Router setup completed",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", maxBodySize),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)

	return router, dedup.Close
}
