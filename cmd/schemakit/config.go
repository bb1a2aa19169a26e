package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CLIConfig represents the schemakit CLI configuration
type CLIConfig struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Driver      string   `mapstructure:"driver"`
	URL         string   `mapstructure:"url"`
	Schema      string   `mapstructure:"schema"`
	TablePrefix string   `mapstructure:"table_prefix"`
	Exclude     []string `mapstructure:"exclude"`
}

// CacheConfig represents metadata cache configuration
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	Tag           string        `mapstructure:"tag"`
}

// ServerConfig represents the serve command configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// loadConfig loads the configuration from schemakit.yml or schemakit.yaml
func loadConfig() (*CLIConfig, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8090)

	// Set config name and paths
	v.SetConfigName("schemakit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Enable environment variable support
	v.SetEnvPrefix("SCHEMAKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config CLIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// databaseURL returns the database URL from the environment or config
func databaseURL(cfg *CLIConfig) string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return cfg.Database.URL
}

// validateConfig validates the configuration
func validateConfig(cfg *CLIConfig) error {
	switch cfg.Database.Driver {
	case "postgres", "pgx", "sqlite3":
	case "":
		return fmt.Errorf("database.driver must be set")
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got: %s", cfg.Cache.TTL)
	}
	return nil
}
