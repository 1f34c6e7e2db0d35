package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/studiolegale/fascicolo/internal/common"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Extract  ExtractConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver        string
	DSN           string
	AutoMigrate   bool
	MigrationsDir string
	DialTimeout   time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// LLMConfig holds LLM provider configuration.
// Safety narrowing for stricter jurisdictions happens at the provider
// account, not here.
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	PreferredModels []string
	Timeout         time.Duration
}

// ExtractConfig holds upload-extraction configuration
type ExtractConfig struct {
	Pdftotext string
	MaxBytes  int64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:        getEnv("DB_DRIVER", "postgres"),
			DSN:           getEnv("DB_DSN", ""),
			AutoMigrate:   getEnvAsBool("DB_AUTO_MIGRATE", true),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "migrations"),
			DialTimeout:   getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		LLM: LLMConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			PreferredModels: getEnvAsList("LLM_PREFERRED_MODELS", []string{"gpt-4o-mini", "gpt-4o"}),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Extract: ExtractConfig{
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			MaxBytes:  getEnvAsInt64("UPLOAD_MAX_BYTES", 20<<20),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return common.NewAppError("CONFIG_ERROR", "DB_DSN is required", common.ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return common.NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", common.ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return common.NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", common.ErrInvalidInput)
	}
	return nil
}
