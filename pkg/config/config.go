// pkg/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Warehouse connection
	Postgres *PostgresConfig

	// Pipeline settings
	OutputDir      string
	LogDir         string
	ChunkSize      int
	FuzzyThreshold int
	ProbeTimeout   time.Duration
	RemoteLogTable string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	pg, err := LoadPostgresConfig()
	if err != nil {
		return nil, fmt.Errorf("loading postgres config: %w", err)
	}

	cfg := &Config{
		Postgres:       pg,
		OutputDir:      getEnv("OUTPUT_DIR", "output"),
		LogDir:         getEnv("LOG_DIR", "logs"),
		ChunkSize:      getEnvAsInt("CHUNK_SIZE", 500),
		FuzzyThreshold: getEnvAsInt("FUZZY_THRESHOLD", 85),
		ProbeTimeout:   time.Duration(getEnvAsInt("PROBE_TIMEOUT_SECONDS", 5)) * time.Second,
		RemoteLogTable: getEnv("REMOTE_LOG_TABLE", "pipeline_run_log"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Postgres == nil {
		return fmt.Errorf("postgres configuration is required")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		return fmt.Errorf("fuzzy threshold must be between 0 and 100, got %d", c.FuzzyThreshold)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %s", c.ProbeTimeout)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}
	return nil
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
