package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Database       DatabaseConfig
	JWT            JWTConfig
	App            AppConfig
	Reconciliation ReconciliationConfig
	Repository     RepositoryConfig
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	// EventBuffer is the per-subscriber queue length of the event stream.
	EventBuffer int
}

// ReconciliationConfig tunes report generation and normalization.
type ReconciliationConfig struct {
	Timezone      string
	Workers       int
	AutoNormalize bool
	NormalizeNote string
	// EmployeeCacheTTL is how long employee lookups are cached. Zero disables the cache.
	EmployeeCacheTTL time.Duration
}

// RepositoryConfig controls retries of transient store errors.
type RepositoryConfig struct {
	RetryAttempts uint
	RetryDelay    time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Driver:     getEnv("DB_DRIVER", DriverPostgres),
		Host:       getEnv("DB_HOST", "localhost"),
		Port:       dbPort,
		User:       getEnv("DB_USER", "postgres"),
		Password:   getEnv("DB_PASSWORD", ""),
		Name:       getEnv("DB_NAME", "attendance_reconciliation"),
		SSLMode:    getEnv("DB_SSL_MODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "reconciliation.db"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	eventBuffer, err := strconv.Atoi(getEnv("APP_EVENT_BUFFER", "16"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_EVENT_BUFFER: %w", err)
	}

	config.App = AppConfig{
		Port:               appPort,
		EventBuffer:        eventBuffer,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Reconciliation configuration
	workers, err := strconv.Atoi(getEnv("RECON_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECON_WORKERS: %w", err)
	}
	autoNormalize, err := strconv.ParseBool(getEnv("RECON_AUTO_NORMALIZE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECON_AUTO_NORMALIZE: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("RECON_EMPLOYEE_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECON_EMPLOYEE_CACHE_TTL: %w", err)
	}

	config.Reconciliation = ReconciliationConfig{
		Timezone:         getEnv("RECON_TIMEZONE", "UTC"),
		Workers:          workers,
		AutoNormalize:    autoNormalize,
		NormalizeNote:    getEnv("RECON_NORMALIZE_NOTE", ""),
		EmployeeCacheTTL: cacheTTL,
	}

	// Repository configuration
	attempts, err := strconv.ParseUint(getEnv("REPO_RETRY_ATTEMPTS", "3"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid REPO_RETRY_ATTEMPTS: %w", err)
	}
	retryDelay, err := time.ParseDuration(getEnv("REPO_RETRY_DELAY", "50ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPO_RETRY_DELAY: %w", err)
	}

	config.Repository = RepositoryConfig{
		RetryAttempts: uint(attempts),
		RetryDelay:    retryDelay,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Reconciliation.Workers < 1 {
		return fmt.Errorf("RECON_WORKERS must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid RECON_TIMEZONE: %w", err)
	}
	if c.Repository.RetryAttempts < 1 {
		return fmt.Errorf("REPO_RETRY_ATTEMPTS must be at least 1")
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

// Location loads the employee-local zone used as the day boundary.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Reconciliation.Timezone)
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
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
