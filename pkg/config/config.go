package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (audit snapshots)
	Database DatabaseConfig

	// Redis (API response cache)
	Redis RedisConfig

	// Text overlay (optional annotation layer)
	Overlay OverlayConfig

	// Local dataset locations
	Data DataConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// OverlayConfig holds text-overlay configuration.
// The overlay may only rewrite textual fields (notes, entry_rule,
// invalidation); every numeric field stays rule-based.
type OverlayConfig struct {
	Enabled    bool
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RatePerSec float64
}

// DataConfig holds local dataset file locations
type DataConfig struct {
	BaseDir         string
	HistoryCSV      string
	NewsCSV         string
	SentimentCSV    string
	FundamentalsCSV string
	ForecastCSV     string
	MacroCSV        string
	USDVNDCSV       string
}

// Load reads configuration from environment variables
// SSOT: this is the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8086"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Overlay
		Overlay: OverlayConfig{
			Enabled:    getEnvAsBool("OVERLAY_ENABLED", false),
			BaseURL:    getEnv("OVERLAY_BASE_URL", "http://localhost:8600"),
			Timeout:    getEnvAsDuration("OVERLAY_TIMEOUT", "10s"),
			MaxRetries: getEnvAsInt("OVERLAY_MAX_RETRIES", 2),
			RatePerSec: getEnvAsFloat("OVERLAY_RATE_PER_SEC", 1.0),
		},

		// Data
		Data: DataConfig{
			BaseDir:         getEnv("DATA_DIR", "data"),
			HistoryCSV:      getEnv("DATA_HISTORY_CSV", "data/vn30_history.csv"),
			NewsCSV:         getEnv("DATA_NEWS_CSV", "data/vn30_news_merged.csv"),
			SentimentCSV:    getEnv("DATA_SENTIMENT_CSV", "data/vn30_sentiment_analyzed.csv"),
			FundamentalsCSV: getEnv("DATA_FUNDAMENTALS_CSV", "data/vn30_fundamentals_long.csv"),
			ForecastCSV:     getEnv("DATA_FORECAST_CSV", "models/artifacts_h7/val_predictions.csv"),
			MacroCSV:        getEnv("DATA_MACRO_CSV", "data/vn_macro_quarterly.csv"),
			USDVNDCSV:       getEnv("DATA_USDVND_CSV", "data/usdvnd_daily.csv"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Overlay.Enabled && c.Overlay.BaseURL == "" {
		return fmt.Errorf("OVERLAY_BASE_URL is required when OVERLAY_ENABLED=true")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		fallback, _ := time.ParseDuration(defaultValue)
		return fallback
	}

	return value
}
