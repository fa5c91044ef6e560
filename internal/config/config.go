// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds process configuration read from the environment
type Config struct {
	DataDir           string // Base directory for the database and backups (always absolute)
	LogLevel          string
	Port              int
	DevMode           bool
	StrategyFile      string // YAML strategy parameters, optional
	AccountID         string
	PaperStartingCash float64
	Backup            BackupConfig
	Strategy          *Strategy
}

// BackupConfig configures uploads to S3-compatible storage
type BackupConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether a backup destination is configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// DatabasePath returns the path of the main database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "meridian.db")
}

// Load reads configuration from .env and environment variables, then the strategy file
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("MERIDIAN_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Port:              getEnvAsInt("PORT", 8080),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		StrategyFile:      getEnv("STRATEGY_FILE", filepath.Join(absDataDir, "strategy.yaml")),
		AccountID:         getEnv("ACCOUNT_ID", "paper"),
		PaperStartingCash: getEnvAsFloat("PAPER_STARTING_CASH", 100_000),
		Backup: BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		},
	}

	strategy, err := LoadStrategy(cfg.StrategyFile)
	if err != nil {
		return nil, err
	}
	cfg.Strategy = strategy

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AccountID == "" {
		return fmt.Errorf("ACCOUNT_ID must not be empty")
	}
	if c.PaperStartingCash < 0 {
		return fmt.Errorf("PAPER_STARTING_CASH must not be negative")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
