package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Recommend  RecommendConfig  `mapstructure:"recommend"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	MealDB     MealDBConfig     `mapstructure:"mealdb"`
	USDA       USDAConfig       `mapstructure:"usda"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Nutrition  NutritionConfig  `mapstructure:"nutrition"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	LogLevel   string           `mapstructure:"log_level"`
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
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	DedupWindow    time.Duration `mapstructure:"dedup_window"`
}

// DatabaseConfig 食譜庫設定（sqlite 或 postgres）
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig 營養查詢的遠端快取
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// CacheConfig 候選食譜快取設定
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	MaxSize int           `mapstructure:"max_size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RecommendConfig 推薦流程設定
type RecommendConfig struct {
	Workers          int           `mapstructure:"workers"`
	DefaultCount     int           `mapstructure:"default_count"`
	MaxCount         int           `mapstructure:"max_count"`
	OverFetchFactor  int           `mapstructure:"over_fetch_factor"`
	DetailTimeout    time.Duration `mapstructure:"detail_timeout"`
	LookupTimeout    time.Duration `mapstructure:"lookup_timeout"`
	GenerateTimeout  time.Duration `mapstructure:"generate_timeout"`
	PersistGenerated bool          `mapstructure:"persist_generated"`
}

// RankingConfig 排序容差
type RankingConfig struct {
	CalorieTolerance float64 `mapstructure:"calorie_tolerance"`
	MacroTolerance   float64 `mapstructure:"macro_tolerance"`
}

// MealDBConfig TheMealDB 設定
type MealDBConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// USDAConfig USDA FoodData Central 設定
type USDAConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// NutritionConfig 營養查詢快取設定
type NutritionConfig struct {
	LookupCacheSize int64 `mapstructure:"lookup_cache_size"`
}

// BreakerConfig 外部服務斷路器設定
type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// IngestConfig 匯入佇列設定
type IngestConfig struct {
	Workers     int  `mapstructure:"workers"`
	MaxSize     int  `mapstructure:"max_size"`
	SeedOnStart bool `mapstructure:"seed_on_start"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 可有可無
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	viper.Reset()
	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定常用環境變量
	bindings := map[string]string{
		"database.driver":      "DB_DRIVER",
		"database.dsn":         "DATABASE_URL",
		"redis.enabled":        "REDIS_ENABLED",
		"redis.addr":           "REDIS_ADDR",
		"redis.password":       "REDIS_PASSWORD",
		"usda.api_key":         "USDA_API_KEY",
		"openrouter.api_key":   "OPENROUTER_API_KEY",
		"openrouter.model":     "OPENROUTER_MODEL",
		"cache.enabled":        "CACHE_ENABLED",
		"cache.ttl":            "CACHE_TTL",
		"rate_limit.enabled":   "RATE_LIMIT_ENABLED",
		"ingest.seed_on_start": "SEED_ON_START",
		"log_level":            "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
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
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-recommender")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "45s")
	viper.SetDefault("server.max_body_bytes", 1<<20)
	viper.SetDefault("server.dedup_window", "2s")

	// 資料庫
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "data/recipes.db")
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)

	// Redis
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", "24h")

	// 候選快取
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "30m")

	// 推薦流程
	viper.SetDefault("recommend.workers", 4)
	viper.SetDefault("recommend.default_count", 5)
	viper.SetDefault("recommend.max_count", 50)
	viper.SetDefault("recommend.over_fetch_factor", 2)
	viper.SetDefault("recommend.detail_timeout", "8s")
	viper.SetDefault("recommend.lookup_timeout", "5s")
	viper.SetDefault("recommend.generate_timeout", "60s")
	viper.SetDefault("recommend.persist_generated", false)

	// 排序容差
	viper.SetDefault("ranking.calorie_tolerance", 50)
	viper.SetDefault("ranking.macro_tolerance", 5)

	// 外部資料來源
	viper.SetDefault("mealdb.base_url", "https://www.themealdb.com/api/json/v1/1")
	viper.SetDefault("mealdb.timeout", "10s")
	viper.SetDefault("usda.base_url", "https://api.nal.usda.gov/fdc/v1")
	viper.SetDefault("usda.api_key", "DEMO_KEY")
	viper.SetDefault("usda.timeout", "10s")

	// OpenRouter 設定（沒有 API key 時不啟用生成服務）
	viper.SetDefault("openrouter.enabled", true)
	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.model", "qwen/qwen-2.5-72b-instruct:free")
	viper.SetDefault("openrouter.max_tokens", 1500)
	viper.SetDefault("openrouter.temperature", 0.7)
	viper.SetDefault("openrouter.timeout", "60s")
	viper.SetDefault("openrouter.min_interval", "1s")

	viper.SetDefault("nutrition.lookup_cache_size", 512)

	// 斷路器
	viper.SetDefault("breaker.max_requests", 3)
	viper.SetDefault("breaker.interval", "1m")
	viper.SetDefault("breaker.timeout", "30s")
	viper.SetDefault("breaker.min_requests", 10)
	viper.SetDefault("breaker.failure_ratio", 0.6)

	// 匯入佇列
	viper.SetDefault("ingest.workers", 4)
	viper.SetDefault("ingest.max_size", 500)
	viper.SetDefault("ingest.seed_on_start", false)

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	viper.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}
	if config.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.Recommend.Workers <= 0 {
		return fmt.Errorf("invalid recommend workers")
	}
	if config.Recommend.OverFetchFactor < 1 {
		return fmt.Errorf("invalid over fetch factor")
	}
	if config.Recommend.DefaultCount <= 0 || config.Recommend.MaxCount < config.Recommend.DefaultCount {
		return fmt.Errorf("invalid recommend count bounds")
	}

	if config.Ranking.CalorieTolerance < 0 || config.Ranking.MacroTolerance < 0 {
		return fmt.Errorf("ranking tolerances must not be negative")
	}

	if config.Nutrition.LookupCacheSize <= 0 {
		return fmt.Errorf("invalid nutrition lookup cache size")
	}

	if config.Ingest.Workers <= 0 || config.Ingest.MaxSize <= 0 {
		return fmt.Errorf("invalid ingest queue settings")
	}

	return nil
}

// GeneratorEnabled 是否啟用生成式備援
func (c *OpenRouterConfig) GeneratorEnabled() bool {
	return c.Enabled && c.APIKey != ""
}
