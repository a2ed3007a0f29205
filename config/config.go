package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Retrieval RetrievalConfig
	Geocode   GeocodeConfig
	Resolver  ResolverConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds the Postgres connection settings. The database carries
// both the product catalog and the pgvector reference corpus.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RedisConfig holds the batch queue connection settings
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

// LLMConfig holds the language model API configuration
type LLMConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	ChatModel         string  `mapstructure:"chat_model"`
	EmbeddingModel    string  `mapstructure:"embedding_model"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// RetrievalConfig holds similarity-search tuning
type RetrievalConfig struct {
	ProductTopK     int `mapstructure:"product_top_k"`
	DiscountTopK    int `mapstructure:"discount_top_k"`
	MaxContextWords int `mapstructure:"max_context_words"`
}

// GeocodeConfig holds the address validation provider configuration
type GeocodeConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// ResolverConfig selects how stage 1 finds product codes. "catalog" matches
// against the loaded catalog; "corpus" scans retrieved passages directly.
type ResolverConfig struct {
	Mode         string `mapstructure:"mode"`
	FallbackTopK int    `mapstructure:"fallback_top_k"`
	Debug        bool   `mapstructure:"debug"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cavtal/")

	// Environment variable settings
	v.SetEnvPrefix("CAVTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database defaults
	v.SetDefault("database.max_open_conns", 10)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.result_ttl", "24h")

	// LLM defaults (Groq's OpenAI-compatible endpoint)
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.chat_model", "llama3-70b-8192")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.requests_per_second", 0.5)

	// Retrieval defaults
	v.SetDefault("retrieval.product_top_k", 20)
	v.SetDefault("retrieval.discount_top_k", 20)
	v.SetDefault("retrieval.max_context_words", 2500)

	// Geocode defaults
	v.SetDefault("geocode.base_url", "https://api.geoapify.com")
	v.SetDefault("geocode.cache_ttl", "24h")

	// Resolver defaults
	v.SetDefault("resolver.mode", "catalog")
	v.SetDefault("resolver.fallback_top_k", 30)
	v.SetDefault("resolver.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required (set CAVTAL_LLM_API_KEY)")
	}

	if config.Database.URL == "" {
		return fmt.Errorf("database URL is required (set CAVTAL_DATABASE_URL)")
	}

	if config.Resolver.Mode != "catalog" && config.Resolver.Mode != "corpus" {
		return fmt.Errorf("resolver mode must be 'catalog' or 'corpus', got: %s", config.Resolver.Mode)
	}

	return nil
}
