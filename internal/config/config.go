package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"painel/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Uploads   UploadConfig
	Inference InferenceConfig
	Filter    FilterConfig
	Profiling ProfilingConfig
	Sessions  SessionConfig
	LogLevel  string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	APIPort         string
	GinMode         string
	ShutdownTimeout time.Duration
}

// CatalogConfig selects and locates the dataset catalog
type CatalogConfig struct {
	Driver      string // sqlite or postgres
	Path        string // sqlite file, ":memory:" allowed
	DatabaseURL string // postgres DSN
}

// UploadConfig holds upload storage settings
type UploadConfig struct {
	Dir        string
	MaxSizeMB  int
	Extensions []string
}

// MaxBytes returns the upload limit in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxSizeMB) << 20
}

// InferenceConfig holds the type inference thresholds
type InferenceConfig struct {
	CategoricalRatio       float64
	CategoricalMaxDistinct int
	DateThreshold          float64
}

// FilterConfig holds filter engine settings
type FilterConfig struct {
	CacheSize int
}

// SessionConfig controls how long idle dashboard sessions are kept
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:    loadServerConfig(),
		Catalog:   loadCatalogConfig(),
		Uploads:   loadUploadConfig(),
		Inference: loadInferenceConfig(),
		Filter:    FilterConfig{CacheSize: getEnvIntOrDefault("FILTER_CACHE_SIZE", 128)},
		Profiling: loadProfilingConfig(),
		Sessions: SessionConfig{
			TTL:           getEnvDurationOrDefault("SESSION_TTL", 2*time.Hour),
			SweepInterval: getEnvDurationOrDefault("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		},
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		APIPort:         getEnvOrDefault("API_PORT", "8090"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Driver:      strings.ToLower(getEnvOrDefault("CATALOG_DRIVER", DriverSQLite)),
		Path:        getEnvOrDefault("CATALOG_PATH", "painel.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}

func loadUploadConfig() UploadConfig {
	return UploadConfig{
		Dir:        getEnvOrDefault("UPLOAD_DIR", "uploads"),
		MaxSizeMB:  getEnvIntOrDefault("MAX_UPLOAD_MB", 50),
		Extensions: []string{".csv", ".xlsx", ".xls"},
	}
}

func loadInferenceConfig() InferenceConfig {
	return InferenceConfig{
		CategoricalRatio:       getEnvFloatOrDefault("CATEGORICAL_RATIO", 0.10),
		CategoricalMaxDistinct: getEnvIntOrDefault("CATEGORICAL_MAX_DISTINCT", 50),
		DateThreshold:          getEnvFloatOrDefault("DATE_THRESHOLD", 0.5),
	}
}

func loadProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	switch config.Catalog.Driver {
	case DriverSQLite:
		if config.Catalog.Path == "" {
			return errors.ConfigInvalid("CATALOG_PATH is required for the sqlite catalog")
		}
	case DriverPostgres:
		if config.Catalog.DatabaseURL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the postgres catalog")
		}
	default:
		return errors.ConfigInvalid("CATALOG_DRIVER must be sqlite or postgres, got " + config.Catalog.Driver)
	}
	if config.Uploads.MaxSizeMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if r := config.Inference.CategoricalRatio; r <= 0 || r > 1 {
		return errors.ConfigInvalid("CATEGORICAL_RATIO must be in (0, 1]")
	}
	if config.Inference.CategoricalMaxDistinct <= 0 {
		return errors.ConfigInvalid("CATEGORICAL_MAX_DISTINCT must be positive")
	}
	if t := config.Inference.DateThreshold; t <= 0 || t >= 1 {
		return errors.ConfigInvalid("DATE_THRESHOLD must be in (0, 1)")
	}
	if config.Filter.CacheSize <= 0 {
		return errors.ConfigInvalid("FILTER_CACHE_SIZE must be positive")
	}
	if config.Sessions.TTL <= 0 || config.Sessions.SweepInterval <= 0 {
		return errors.ConfigInvalid("SESSION_TTL and SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
