package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	App        AppConfig
	Storage    StorageConfig
	Redis      RedisConfig
	Extraction ExtractionConfig
	Bulk       BulkConfig
	CORS       CORSConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port            int
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Type      string
	LocalPath string
	BaseURL   string
	S3        S3Config
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	Prefix          string
}

// RedisConfig is optional. An empty Addr disables the record cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type ExtractionConfig struct {
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
}

type BulkConfig struct {
	WorkerLimit        int
	OperationRetention time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	} else if err != nil {
		slog.Info("No .env file found, reading configuration from environment")
	}

	var (
		config = &Config{}
		errs   []error
	)

	// Database configuration
	config.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432, &errs),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "filing_tracker"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 10, &errs)),
		MinConns:        int32(getEnvInt("DB_MIN_CONNS", 1, &errs)),
		MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour, &errs),
	}

	// Application configuration
	config.App = AppConfig{
		Port:            getEnvInt("APP_PORT", 8080, &errs),
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second, &errs),
	}

	// Blob storage
	config.Storage = StorageConfig{
		Type:      strings.ToLower(getEnv("STORAGE_TYPE", "local")),
		LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
		BaseURL:   getEnv("STORAGE_BASE_URL", "/uploads"),
		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			PathStyle:       getEnvBool("S3_PATH_STYLE", false, &errs),
			Prefix:          getEnv("S3_PREFIX", ""),
		},
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0, &errs),
		CacheTTL: getEnvDuration("REDIS_CACHE_TTL", 10*time.Minute, &errs),
	}

	config.Extraction = ExtractionConfig{
		BaseURL:      getEnv("EXTRACTION_BASE_URL", "http://localhost:8000"),
		PollInterval: getEnvDuration("EXTRACTION_POLL_INTERVAL", 3*time.Second, &errs),
		Timeout:      getEnvDuration("EXTRACTION_TIMEOUT", 30*time.Second, &errs),
	}

	config.Bulk = BulkConfig{
		WorkerLimit:        getEnvInt("BULK_WORKER_LIMIT", 4, &errs),
		OperationRetention: getEnvDuration("BULK_OPERATION_RETENTION", time.Hour, &errs),
	}

	config.CORS = CORSConfig{
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("STORAGE_LOCAL_PATH is required for local storage")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("STORAGE_TYPE must be local or s3, got %q", c.Storage.Type)
	}
	if c.Extraction.BaseURL == "" {
		return fmt.Errorf("EXTRACTION_BASE_URL is required")
	}
	if c.Extraction.PollInterval <= 0 {
		return fmt.Errorf("EXTRACTION_POLL_INTERVAL must be positive")
	}
	if c.Bulk.WorkerLimit < 0 {
		return fmt.Errorf("BULK_WORKER_LIMIT must not be negative")
	}
	if c.Bulk.OperationRetention < time.Minute {
		return fmt.Errorf("BULK_OPERATION_RETENTION must be at least 1m")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
