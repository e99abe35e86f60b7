// Package config loads ingestion settings from the environment. A .env file
// in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database      DatabaseConfig
	Dedup         DedupConfig
	PDF           PDFConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Persistence   PersistenceConfig
	Watch         WatchConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DedupConfig mirrors the duplicate detector settings.
type DedupConfig struct {
	TimeWindowDays  int
	AmountTolerance float64
	FuzzyThreshold  int
	MergeDuplicates bool
	LookBack        int
}

type PDFConfig struct {
	EnableHeavyTable bool
	EnableOCR        bool
	StrategyTimeout  time.Duration
	OCRCommand       string
	OCRDPI           float64
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

// PersistenceConfig enables writing imported transactions to PostgreSQL
// on behalf of UserID.
type PersistenceConfig struct {
	Enabled bool
	UserID  string
}

type WatchConfig struct {
	Dir      string
	Schedule string
	Workers  int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "runway"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Dedup: DedupConfig{
			TimeWindowDays:  getEnvAsInt("DEDUP_TIME_WINDOW_DAYS", 1),
			AmountTolerance: getEnvAsFloat("DEDUP_AMOUNT_TOLERANCE", 0.01),
			FuzzyThreshold:  getEnvAsInt("DEDUP_FUZZY_THRESHOLD", 85),
			MergeDuplicates: getEnvAsBool("DEDUP_MERGE_DUPLICATES", true),
			LookBack:        getEnvAsInt("DEDUP_LOOKBACK", 100),
		},
		PDF: PDFConfig{
			EnableHeavyTable: getEnvAsBool("PDF_ENABLE_HEAVY_TABLE", false),
			EnableOCR:        getEnvAsBool("PDF_ENABLE_OCR", false),
			StrategyTimeout:  getEnvAsDuration("PDF_STRATEGY_TIMEOUT", 60*time.Second),
			OCRCommand:       getEnv("OCR_COMMAND", "tesseract"),
			OCRDPI:           getEnvAsFloat("OCR_DPI", 300),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "INFO"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", false),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Persistence: PersistenceConfig{
			Enabled: getEnvAsBool("PERSIST_ENABLED", false),
			UserID:  getEnv("PERSIST_USER_ID", ""),
		},
		Watch: WatchConfig{
			Dir:      getEnv("WATCH_DIR", ""),
			Schedule: getEnv("WATCH_SCHEDULE", "@every 1m"),
			Workers:  getEnvAsInt("WATCH_WORKERS", 4),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Dedup.FuzzyThreshold < 0 || c.Dedup.FuzzyThreshold > 100 {
		errs = append(errs, fmt.Errorf("DEDUP_FUZZY_THRESHOLD must be within 0..100, got %d", c.Dedup.FuzzyThreshold))
	}
	if c.Dedup.AmountTolerance < 0 {
		errs = append(errs, fmt.Errorf("DEDUP_AMOUNT_TOLERANCE must not be negative, got %v", c.Dedup.AmountTolerance))
	}
	if c.Dedup.TimeWindowDays < 0 {
		errs = append(errs, fmt.Errorf("DEDUP_TIME_WINDOW_DAYS must not be negative, got %d", c.Dedup.TimeWindowDays))
	}
	if c.Dedup.LookBack < 0 {
		errs = append(errs, fmt.Errorf("DEDUP_LOOKBACK must not be negative, got %d", c.Dedup.LookBack))
	}
	if c.PDF.StrategyTimeout < 0 {
		errs = append(errs, errors.New("PDF_STRATEGY_TIMEOUT must not be negative"))
	}
	if c.PDF.EnableOCR && strings.TrimSpace(c.PDF.OCRCommand) == "" {
		errs = append(errs, errors.New("OCR_COMMAND is required when PDF_ENABLE_OCR is set"))
	}
	if c.Persistence.Enabled && c.Persistence.UserID == "" {
		errs = append(errs, errors.New("PERSIST_USER_ID is required when PERSIST_ENABLED is set"))
	}
	if c.Watch.Workers < 1 {
		errs = append(errs, fmt.Errorf("WATCH_WORKERS must be at least 1, got %d", c.Watch.Workers))
	}
	return errors.Join(errs...)
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
