package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `validate:"oneof=development production test"`
	LogLevel string `validate:"omitempty,oneof=debug info warn error"`

	// Match source
	Tours              []string      `validate:"min=1,dive,oneof=atp wta"`
	TrainingYearStart  int           `validate:"gte=1968"`
	TrainingYearEnd    int           `validate:"gtfield=TrainingYearStart"` // exclusive
	ATPBaseURL         string        `validate:"required,url"`
	WTABaseURL         string        `validate:"required,url"`
	DataDir            string        `validate:"required"`
	CacheTTL           time.Duration `validate:"gte=0"`
	FetchConcurrency   int           `validate:"min=1,max=32"`
	FetchTimeout       time.Duration `validate:"gt=0"`
	FetchRatePerSecond float64       `validate:"gt=0"`
	FetchRateBurst     int           `validate:"min=1"`
	FetchRetries       int           `validate:"min=0,max=10"`

	// Dataset
	LookbackDays int `validate:"min=1"`
	Seed         int64
	TestFraction float64 `validate:"gt=0,lt=1"`

	// Outputs
	ModelPath   string `validate:"required"`
	DatasetPath string `validate:"required"`
	XLSXPath    string
	MetricsFile string

	// Optional sinks, each enabled when its URL is set
	RedisURL        string `validate:"omitempty,url"`
	PostgresURL     string `validate:"omitempty,url"`
	ClickHouseURL   string `validate:"omitempty,url"`
	SQLitePath      string
	ExportBatchSize int `validate:"min=1,max=10000"`

	// Artifact storage
	S3Endpoint  string `validate:"omitempty,url"`
	S3AccessKey string `validate:"required_with=S3Endpoint"`
	S3SecretKey string `validate:"required_with=S3Endpoint"`
	S3Bucket    string `validate:"required_with=S3Endpoint"`
	S3Region    string
}

// Load loads configuration from environment variables.
// It returns an error if the resulting configuration is invalid.
func Load() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "")),

		Tours:              getEnvList("TOURS", "atp,wta"),
		TrainingYearStart:  getEnvInt("TRAINING_YEAR_START", 2005),
		TrainingYearEnd:    getEnvInt("TRAINING_YEAR_END", 2027),
		ATPBaseURL:         getEnv("SACKMANN_ATP_URL", "https://raw.githubusercontent.com/JeffSackmann/tennis_atp/master"),
		WTABaseURL:         getEnv("SACKMANN_WTA_URL", "https://raw.githubusercontent.com/JeffSackmann/tennis_wta/master"),
		DataDir:            dataDir,
		CacheTTL:           getEnvDuration("CACHE_TTL", 24*time.Hour),
		FetchConcurrency:   getEnvInt("FETCH_CONCURRENCY", 4),
		FetchTimeout:       getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchRatePerSecond: getEnvFloat("FETCH_RATE_PER_SECOND", 5),
		FetchRateBurst:     getEnvInt("FETCH_RATE_BURST", 4),
		FetchRetries:       getEnvInt("FETCH_RETRIES", 3),

		LookbackDays: getEnvInt("LOOKBACK_DAYS", 365),
		Seed:         getEnvInt64("SEED", 42),
		TestFraction: getEnvFloat("TEST_FRACTION", 0.2),

		ModelPath:   getEnv("MODEL_PATH", filepath.Join(dataDir, "model", "model.json")),
		DatasetPath: getEnv("DATASET_PATH", filepath.Join(dataDir, "dataset.csv")),
		XLSXPath:    getEnv("DATASET_XLSX_PATH", ""),
		MetricsFile: getEnv("METRICS_FILE", ""),

		RedisURL:        getEnv("REDIS_URL", ""),
		PostgresURL:     getEnv("POSTGRES_URL", ""),
		ClickHouseURL:   getEnv("CLICKHOUSE_URL", ""),
		SQLitePath:      getEnv("SQLITE_PATH", ""),
		ExportBatchSize: getEnvInt("EXPORT_BATCH_SIZE", 500),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Region:    getEnv("S3_REGION", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CacheDir is where fetched CSV files are kept when Redis is not configured.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// BaseURLs maps each tour to its source repository.
func (c *Config) BaseURLs() map[string]string {
	return map[string]string{"atp": c.ATPBaseURL, "wta": c.WTABaseURL}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, fallback), ",") {
		if trimmed := strings.ToLower(strings.TrimSpace(v)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
