package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	OpenAI    OpenAIConfig
	Embedding EmbeddingConfig
	Qdrant    QdrantConfig
	Neo4j     Neo4jConfig
	Zyte      ZyteConfig
	Fetch     FetchConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Matching  MatchingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// OpenAIConfig holds settings for the reasoning engine, the embedding
// service and the structured extraction service
type OpenAIConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	Model             string  `mapstructure:"model"`
	EmbeddingModel    string  `mapstructure:"embedding_model"`
	Temperature       float32 `mapstructure:"temperature"`
	MaxIterations     int     `mapstructure:"max_iterations"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
	ExtractionEnabled bool    `mapstructure:"extraction_enabled"`
}

// EmbeddingConfig holds embedding generator configuration
type EmbeddingConfig struct {
	Dimension int           `mapstructure:"dimension"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// QdrantConfig holds vector index connection settings
type QdrantConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Collection string        `mapstructure:"collection"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Neo4jConfig holds graph store connection settings
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// ZyteConfig holds scraping service configuration
type ZyteConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FetchConfig holds direct page fetch configuration
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string `mapstructure:"type"` // "memory" or "redis"
	RedisURL string `mapstructure:"redis_url"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute per client IP
	Zyte  int `mapstructure:"zyte"`   // requests per minute to the scraping service
}

// MatchingConfig holds title matching configuration
type MatchingConfig struct {
	MinConfidenceThreshold float64 `mapstructure:"min_confidence_threshold"` // 0-100
	EnableFuzzyMatching    bool    `mapstructure:"enable_fuzzy_matching"`
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	// A missing .env file is the normal case outside local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cartgenie/")

	// CARTGENIE_QDRANT_HOST -> qdrant.host
	v.SetEnvPrefix("CARTGENIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key gets a default,
// even an empty one, so that AutomaticEnv picks it up during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})

	v.SetDefault("logger.level", "info")

	// Reasoning, embedding and extraction services
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.max_iterations", 8)
	v.SetDefault("openai.requests_per_minute", 120)
	v.SetDefault("openai.extraction_enabled", true)

	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.cache_ttl", "168h")

	// Stores
	v.SetDefault("qdrant.host", "")
	v.SetDefault("qdrant.port", 6333)
	v.SetDefault("qdrant.collection", "cartgenie_products")
	v.SetDefault("qdrant.api_key", "")
	v.SetDefault("qdrant.timeout", "10s")

	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.user", "")
	v.SetDefault("neo4j.password", "")

	// Page fetching
	v.SetDefault("zyte.api_key", "")
	v.SetDefault("zyte.base_url", "https://api.zyte.com/v1")
	v.SetDefault("zyte.timeout", "30s")

	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.zyte", 60)

	// Matching defaults
	v.SetDefault("matching.min_confidence_threshold", 40.0)
	v.SetDefault("matching.enable_fuzzy_matching", true)
}

// validate checks structural settings only. Store and service credentials are
// checked by each connector on first use.
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}
	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}
	if config.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got: %d", config.Embedding.Dimension)
	}
	if config.OpenAI.MaxIterations <= 0 {
		return fmt.Errorf("openai max_iterations must be positive, got: %d", config.OpenAI.MaxIterations)
	}
	if config.Matching.MinConfidenceThreshold < 0 || config.Matching.MinConfidenceThreshold > 100 {
		return fmt.Errorf("matching confidence threshold must be between 0 and 100, got: %.1f", config.Matching.MinConfidenceThreshold)
	}
	if config.RateLimit.PerIP < 0 || config.RateLimit.Zyte < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	return nil
}
