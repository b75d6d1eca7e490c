package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Import   ImportConfig
	Storage  StorageConfig
	Cache    CacheConfig
	Text     TextConfig
	LogLevel slog.Level
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string
	HTTPAddr    string
	CORSOrigins []string
}

// LLMConfig holds extraction model configuration
type LLMConfig struct {
	Provider    string // openai | gemini
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

// ImportConfig holds finalizer and job queue configuration
type ImportConfig struct {
	AsyncThreshold  int
	Workers         int
	QueueSize       int
	ProcessTimeout  time.Duration
	StaleClaimAfter time.Duration
	MaxAttempts     int
	SweepInterval   time.Duration
	MaxUploadMB     int
	UploadDir       string
}

// StorageConfig holds the S3-compatible archive configuration. Archiving is off when Endpoint is empty.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// CacheConfig holds extraction cache configuration. The cache is off when Dir is empty and InMemory is false.
type CacheConfig struct {
	Dir      string
	InMemory bool
	TTL      time.Duration
}

// TextConfig holds text extraction configuration
type TextConfig struct {
	Pdftotext     string
	MinTextLength int
}

// LoadConfig loads configuration from environment variables. A .env file in the
// working directory is read first when APP_ENV is not production.
func LoadConfig() *Config {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}
	return &Config{
		LogLevel: ParseLogLevel(getEnv("LOG_LEVEL", "info")),
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:    getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr:    getEnv("HTTP_ADDR", ":8081"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			Model:       getEnv("LLM_MODEL", ""),
			APIKey:      getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", getEnv("GEMINI_API_KEY", ""))),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			MaxAttempts: getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvAsDuration("LLM_BASE_DELAY", time.Second),
		},
		Import: ImportConfig{
			AsyncThreshold:  getEnvAsInt("ASYNC_THRESHOLD", 50),
			Workers:         getEnvAsInt("IMPORT_WORKERS", 2),
			QueueSize:       getEnvAsInt("IMPORT_QUEUE_SIZE", 64),
			ProcessTimeout:  getEnvAsDuration("IMPORT_PROCESS_TIMEOUT", 5*time.Minute),
			StaleClaimAfter: getEnvAsDuration("IMPORT_STALE_CLAIM_AFTER", 15*time.Minute),
			MaxAttempts:     getEnvAsInt("IMPORT_MAX_ATTEMPTS", 3),
			SweepInterval:   getEnvAsDuration("IMPORT_SWEEP_INTERVAL", time.Minute),
			MaxUploadMB:     getEnvAsInt("MAX_UPLOAD_MB", 10),
			UploadDir:       getEnv("UPLOAD_DIR", "./tmp/uploads"),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "menu-sources"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			UseSSL:    getEnvAsBool("S3_USE_SSL", true),
		},
		Cache: CacheConfig{
			Dir:      getEnv("EXTRACTION_CACHE_DIR", ""),
			InMemory: getEnvAsBool("EXTRACTION_CACHE_INMEM", false),
			TTL:      getEnvAsDuration("EXTRACTION_CACHE_TTL", 24*time.Hour),
		},
		Text: TextConfig{
			Pdftotext:     getEnv("PDFTOTEXT", "pdftotext"),
			MinTextLength: getEnvAsInt("MIN_TEXT_LENGTH", 20),
		},
	}
}

// ParseLogLevel maps debug, info, warn and error onto slog levels. Anything else is info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError(CodeConfig, "DB_URL is required for the postgres driver", ErrInvalidInput)
		}
	case "sqlite":
	default:
		return NewAppError(CodeConfig, "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return NewAppError(CodeConfig, "LLM_PROVIDER must be openai or gemini", ErrInvalidInput)
	}
	if c.Import.AsyncThreshold < 1 {
		return NewAppError(CodeConfig, "ASYNC_THRESHOLD must be positive", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR or HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
