package config

import (
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	PostgresURL          string `mapstructure:"POSTGRES_URL"`
	RedisAddr            string `mapstructure:"REDIS_ADDR"`
	ServerPort           string `mapstructure:"SERVER_PORT"`
	IngestTimeoutSeconds int    `mapstructure:"INGEST_TIMEOUT_SECONDS"`
	MaxURLsPerRun        int    `mapstructure:"MAX_URLS_PER_RUN"`
	IngestBatchSize      int    `mapstructure:"INGEST_BATCH_SIZE"`
	FetchTimeoutSeconds  int    `mapstructure:"FETCH_TIMEOUT_SECONDS"`
	AnalyticsCacheTTL    int    `mapstructure:"ANALYTICS_CACHE_TTL_SECONDS"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	// Set default values. POSTGRES_URL has no sensible default but must be
	// registered so Unmarshal sees the environment override.
	viper.SetDefault("POSTGRES_URL", "")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("INGEST_TIMEOUT_SECONDS", 25)
	viper.SetDefault("MAX_URLS_PER_RUN", 100)
	viper.SetDefault("INGEST_BATCH_SIZE", 10)
	viper.SetDefault("FETCH_TIMEOUT_SECONDS", 30)
	viper.SetDefault("ANALYTICS_CACHE_TTL_SECONDS", 60)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
