package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the ETL pipelines.
// All environment variables are read here and nowhere else.
type Config struct {
	Env string // development, staging, production

	// Status API (scheduler daemon)
	Port string

	// Upstream market data
	Kite KiteConfig

	// Data lake
	Lake LakeConfig

	// Remote mirror
	S3 S3Config

	// Run ledger (optional)
	Database DatabaseConfig

	// Pipeline behavior
	ETL ETLConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// KiteConfig holds Zerodha Kite Connect credentials.
type KiteConfig struct {
	APIKey      string
	AccessToken string
	BaseURL     string
}

// LakeConfig holds data lake settings.
type LakeConfig struct {
	BasePath string
}

// S3Config holds remote object storage settings.
// All fields empty means the mirror is disabled, not misconfigured.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// DatabaseConfig holds PostgreSQL settings for the run ledger.
// An empty URL disables the ledger.
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ETLConfig holds pipeline tuning knobs.
type ETLConfig struct {
	Underlyings    []string      // F&O underlyings to process
	MaxInstruments int           // 0 = all (testing limit)
	RequestDelay   time.Duration // minimum gap between upstream calls
	UniverseURL    string        // Nifty 500 membership CSV

	RunFNO    bool
	RunEquity bool
	Schedule  string // cron expression for the daily run
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8089"),

		Kite: KiteConfig{
			APIKey:      getEnv("KITE_API_KEY", ""),
			AccessToken: getEnv("KITE_ACCESS_TOKEN", ""),
			BaseURL:     getEnv("KITE_BASE_URL", "https://api.kite.trade"),
		},

		Lake: LakeConfig{
			BasePath: getEnv("DATA_LAKE_PATH", "data/lake"),
		},

		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET_NAME", ""),
			Region:          getEnv("S3_REGION", "ap-south-1"),
			Endpoint:        getEnv("S3_ENDPOINT", "s3.amazonaws.com"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		ETL: ETLConfig{
			Underlyings:    getEnvAsList("UNDERLYINGS", "BANKNIFTY,NIFTY"),
			MaxInstruments: getEnvAsInt("NIFTY500_MAX_INSTRUMENTS", 0),
			RequestDelay:   getEnvAsDuration("KITE_REQUEST_DELAY", "350ms"),
			UniverseURL:    getEnv("NIFTY500_URL", "https://archives.nseindia.com/content/indices/ind_nifty500list.csv"),
			RunFNO:         getEnvAsBool("RUN_FNO_PIPELINE", true),
			RunEquity:      getEnvAsBool("RUN_EQUITY_PIPELINE", true),
			Schedule:       getEnv("ETL_SCHEDULE", "0 0 16 * * 1-5"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
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

	if len(c.ETL.Underlyings) == 0 && c.ETL.RunFNO {
		return fmt.Errorf("UNDERLYINGS must not be empty when the F&O pipeline is enabled")
	}

	if c.ETL.RequestDelay <= 0 {
		return fmt.Errorf("KITE_REQUEST_DELAY must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

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

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
