package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-ai/internal/api"
	"recipe-ai/internal/api/handlers/health"
	"recipe-ai/internal/core/ai/cache"
	"recipe-ai/internal/core/ai/gemini"
	"recipe-ai/internal/core/ai/openrouter"
	"recipe-ai/internal/core/ai/queue"
	"recipe-ai/internal/core/ai/roboflow"
	"recipe-ai/internal/core/detection"
	"recipe-ai/internal/core/image"
	"recipe-ai/internal/core/imagelookup"
	"recipe-ai/internal/core/recipe"
	"recipe-ai/internal/infrastructure/config"
	"recipe-ai/internal/infrastructure/mealdb"
	"recipe-ai/internal/infrastructure/storage"
	"recipe-ai/internal/infrastructure/vectorstore"
	"recipe-ai/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir, cfg.App.Name); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("gemini_api_key", config.MaskAPIKey(cfg.Gemini.APIKey)),
		zap.String("roboflow_api_key", config.MaskAPIKey(cfg.Roboflow.APIKey)),
		zap.String("bucket", cfg.Storage.Bucket),
	)

	ctx := context.Background()
	readiness := map[string]health.Pinger{}

	// 物件儲存
	store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		common.LogFatal("Failed to initialize object store", zap.Error(err))
	}
	readiness["storage"] = store

	// 食材辨識
	detector := detection.NewService(store, roboflow.NewClient(cfg.Roboflow), cfg.Roboflow.WorkflowID,
		detection.WithThreshold(cfg.Detection.ConfidenceThreshold),
	)

	// Gemini 同時提供向量與生成
	var geminiClient *gemini.Client
	if cfg.Gemini.APIKey != "" {
		geminiClient, err = gemini.NewClient(ctx, cfg.Gemini, cfg.Embedding)
		if err != nil {
			common.LogFatal("Failed to initialize gemini client", zap.Error(err))
		}
		defer geminiClient.Close()
	}

	var embedder recipe.Embedder
	if geminiClient != nil {
		embedder = geminiClient
		if cfg.Redis.Enabled {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				common.LogWarn("Redis 無法連線，向量快取停用", zap.Error(err))
			} else {
				embedder = cache.NewEmbeddingCache(rdb, geminiClient, cfg.Embedding.Model, cfg.Embedding.CacheTTL)
			}
		}
	} else {
		common.LogWarn("未設定 GEMINI_API_KEY，生成時不使用參考食譜")
	}

	var search recipe.SimilaritySearch
	if cfg.Database.URL != "" {
		pg, err := vectorstore.NewPGVectorStore(ctx, cfg.Database)
		if err != nil {
			common.LogFatal("Failed to initialize vector store", zap.Error(err))
		}
		defer pg.Close()
		search = pg
		readiness["database"] = pg
	} else {
		common.LogWarn("未設定 DATABASE_URL，生成時不使用參考食譜")
	}

	var generator recipe.StructuredGenerator
	switch cfg.LLM.Provider {
	case "openrouter":
		generator = openrouter.NewClient(cfg.OpenRouter)
	default:
		if geminiClient == nil {
			common.LogFatal("GEMINI_API_KEY is required for the gemini provider")
		}
		generator = geminiClient
	}
	genQueue := queue.NewManager(generator, cfg.Queue)
	defer genQueue.Close()

	// 圖片查詢
	var mealOpts []mealdb.Option
	if cacheManager := cache.NewManager("mealdb", cfg.Cache); cacheManager != nil {
		defer cacheManager.Close()
		mealOpts = append(mealOpts, mealdb.WithCache(cacheManager))
	}
	lookup := imagelookup.NewService(mealdb.NewClient(cfg.MealDB, mealOpts...), cfg.ImageLookup.Timeout)

	generation := recipe.NewService(
		recipe.NewPromptBuilder(embedder, search, cfg.Retrieval.TopK),
		genQueue,
		lookup,
		recipe.WithRetry(cfg.Generation.MaxRetries, cfg.Generation.RetryBackoff),
	)

	router, cleanup := api.SetupRouter(cfg, api.Dependencies{
		Detector:  detector,
		Generator: generation,
		Uploader:  image.NewService(store, cfg.Image.MaxSizeBytes),
		Readiness: readiness,
	})
	defer cleanup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
