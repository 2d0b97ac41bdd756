package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	OpenRouter  OpenRouterConfig  `mapstructure:"openrouter"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	Roboflow    RoboflowConfig    `mapstructure:"roboflow"`
	Detection   DetectionConfig   `mapstructure:"detection"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Generation  GenerationConfig  `mapstructure:"generation"`
	Queue       QueueConfig       `mapstructure:"queue"`
	ImageLookup ImageLookupConfig `mapstructure:"image_lookup"`
	MealDB      MealDBConfig      `mapstructure:"mealdb"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Image       ImageConfig       `mapstructure:"image"`
	DedupWindow time.Duration     `mapstructure:"dedup_window"`
	LogLevel    string            `mapstructure:"log_level"`
	LogDir      string            `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LLMConfig 結構化生成提供者選擇
type LLMConfig struct {
	Provider string `mapstructure:"provider"` // gemini | openrouter
}

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig 向量設定
type EmbeddingConfig struct {
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// RoboflowConfig 食材辨識工作流程設定
type RoboflowConfig struct {
	APIURL     string        `mapstructure:"api_url"`
	APIKey     string        `mapstructure:"api_key"`
	Workspace  string        `mapstructure:"workspace"`
	WorkflowID string        `mapstructure:"workflow_id"`
	UseCache   bool          `mapstructure:"use_cache"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DetectionConfig 食材辨識流程設定
type DetectionConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// RetrievalConfig 相似食譜檢索設定
type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

// GenerationConfig 食譜生成設定
type GenerationConfig struct {
	MaxRetries   uint64        `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// QueueConfig 生成隊列設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// ImageLookupConfig 食譜圖片查詢設定
type ImageLookupConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// MealDBConfig TheMealDB 設定
type MealDBConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig 物件儲存設定
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// DatabaseConfig 向量資料庫設定
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig Redis 設定（向量快取）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig 記憶體快取設定（圖片查詢結果）
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片上傳配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時直接使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"llm.provider":              "LLM_PROVIDER",
		"gemini.api_key":            "GEMINI_API_KEY",
		"gemini.model":              "GEMINI_MODEL",
		"openrouter.api_key":        "OPENROUTER_API_KEY",
		"openrouter.model":          "OPENROUTER_MODEL",
		"embedding.model":           "EMBEDDING_MODEL",
		"roboflow.api_key":          "ROBOFLOW_API_KEY",
		"roboflow.workspace":        "ROBOFLOW_WORKSPACE",
		"roboflow.workflow_id":      "ROBOFLOW_WORKFLOW_ID",
		"storage.bucket":            "S3_BUCKET_NAME",
		"storage.region":            "AWS_REGION",
		"storage.endpoint":          "S3_ENDPOINT",
		"storage.access_key_id":     "AWS_ACCESS_KEY_ID",
		"storage.secret_access_key": "AWS_SECRET_ACCESS_KEY",
		"database.url":              "DATABASE_URL",
		"redis.addr":                "REDIS_ADDR",
		"redis.password":            "REDIS_PASSWORD",
		"rate_limit.enabled":        "RATE_LIMIT_ENABLED",
		"rate_limit.requests":       "RATE_LIMIT_REQUESTS",
		"rate_limit.window":         "RATE_LIMIT_WINDOW",
		"dedup_window":              "DEDUP_WINDOW",
		"log_level":                 "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-ai")

	// 伺服器設定
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "90s")

	// 生成模型設定
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.3)
	v.SetDefault("gemini.timeout", "60s")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "google/gemini-2.5-flash")
	v.SetDefault("openrouter.max_tokens", 2048)
	v.SetDefault("openrouter.temperature", 0.3)
	v.SetDefault("openrouter.timeout", "60s")

	// 向量設定
	v.SetDefault("embedding.model", "gemini-embedding-001")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("embedding.cache_ttl", "168h")

	// 食材辨識設定
	v.SetDefault("roboflow.api_url", "https://serverless.roboflow.com")
	v.SetDefault("roboflow.workspace", "sdl-wastenot")
	v.SetDefault("roboflow.workflow_id", "detect-count-and-visualize")
	v.SetDefault("roboflow.use_cache", true)
	v.SetDefault("roboflow.timeout", "60s")
	v.SetDefault("detection.confidence_threshold", 0.7)

	// 檢索與生成設定
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("generation.max_retries", 1)
	v.SetDefault("generation.retry_backoff", "500ms")
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.max_size", 100)

	// 圖片查詢設定
	v.SetDefault("image_lookup.timeout", "5s")
	v.SetDefault("mealdb.base_url", "https://www.themealdb.com/api/json/v1/1")
	v.SetDefault("mealdb.timeout", "5s")

	// 儲存設定
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_path_style", false)
	v.SetDefault("database.table", "recipes")
	v.SetDefault("database.max_conns", 10)

	// 快取設定
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Server.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout")
	}

	switch config.LLM.Provider {
	case "gemini", "openrouter":
	default:
		return fmt.Errorf("unknown llm provider %q", config.LLM.Provider)
	}

	if t := config.Detection.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("confidence threshold must be within [0,1], got %v", t)
	}
	if config.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive")
	}
	if config.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	if config.Queue.Workers <= 0 || config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid generation queue")
	}
	if config.ImageLookup.Timeout <= 0 {
		return fmt.Errorf("invalid image lookup timeout")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	return nil
}
