// internal/config/config.go
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	HTTPAddr          string `mapstructure:"HTTP_ADDR"`
	GithubBaseURL     string `mapstructure:"GITHUB_BASE_URL"`
	EnrichConcurrency int    `mapstructure:"ENRICH_CONCURRENCY"`
	ActivityLimit     int    `mapstructure:"ACTIVITY_LIMIT"`
	ListPageSize      int    `mapstructure:"LIST_PAGE_SIZE"`
	RateLimitPerHour  int    `mapstructure:"RATE_LIMIT_PER_HOUR"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("GITHUB_BASE_URL", "https://api.github.com")
	viper.SetDefault("ENRICH_CONCURRENCY", 5)
	viper.SetDefault("ACTIVITY_LIMIT", 5)
	viper.SetDefault("LIST_PAGE_SIZE", 100)
	viper.SetDefault("RATE_LIMIT_PER_HOUR", 5000)

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.GithubBaseURL == "" {
		return nil, errors.New("GITHUB_BASE_URL is a required configuration field")
	}
	if cfg.EnrichConcurrency <= 0 {
		return nil, errors.New("ENRICH_CONCURRENCY must be a positive integer")
	}
	if cfg.ActivityLimit <= 0 {
		return nil, errors.New("ACTIVITY_LIMIT must be a positive integer")
	}
	if cfg.ListPageSize <= 0 || cfg.ListPageSize > 100 {
		return nil, errors.New("LIST_PAGE_SIZE must be between 1 and 100")
	}
	if cfg.RateLimitPerHour <= 0 {
		return nil, errors.New("RATE_LIMIT_PER_HOUR must be a positive integer")
	}

	return &cfg, nil
}
