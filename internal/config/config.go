package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Server    ServerConfig
	Slack     SlackConfig
	Log       LogConfig
	Notify    NotifyConfig
	Telemetry TelemetryConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. An empty Addr disables
// board fan-out.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds bearer token verification settings.
type JWTConfig struct {
	Secret string //nolint:gosec // G117: JWT signing secret config
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	// RateLimit is the sustained requests per second allowed per workspace.
	RateLimit float64
	RateBurst int
}

// SlackConfig holds Slack integration settings. An empty BotToken disables
// Slack delivery.
type SlackConfig struct {
	BotToken string
}

// LogConfig controls the global zerolog logger.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
	// File, when set, receives logs through a rotating writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NotifyConfig bounds background notification delivery.
type NotifyConfig struct {
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

// TelemetryConfig toggles the OpenTelemetry stdout exporters.
type TelemetryConfig struct {
	Enabled        bool
	MetricInterval time.Duration
}

// Load reads configuration from environment variables. A .env file in the
// working directory is read first; variables already set in the
// environment win.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: .env: %w", err)
	}

	var errs []error
	intVar := func(key string, fallback int) int {
		n, err := getEnvInt(key, fallback)
		errs = append(errs, err)
		return n
	}
	durVar := func(key string, fallback time.Duration) time.Duration {
		d, err := getEnvDuration(key, fallback)
		errs = append(errs, err)
		return d
	}
	boolVar := func(key string, fallback bool) bool {
		b, err := getEnvBool(key, fallback)
		errs = append(errs, err)
		return b
	}
	floatVar := func(key string, fallback float64) float64 {
		f, err := getEnvFloat(key, fallback)
		errs = append(errs, err)
		return f
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("TASKFLOW_DB_HOST", "localhost"),
			Port:     intVar("TASKFLOW_DB_PORT", 5432),
			User:     getEnv("TASKFLOW_DB_USER", "taskflow"),
			Password: getEnv("TASKFLOW_DB_PASSWORD", ""),
			DBName:   getEnv("TASKFLOW_DB_NAME", "taskflow_dev"),
			SSLMode:  getEnv("TASKFLOW_DB_SSLMODE", "disable"),
			MaxConns: intVar("TASKFLOW_DB_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:     getEnv("TASKFLOW_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("TASKFLOW_REDIS_PASSWORD", ""),
			DB:       intVar("TASKFLOW_REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("TASKFLOW_JWT_SECRET", ""),
		},
		Server: ServerConfig{
			Addr:         getEnv("TASKFLOW_SERVER_ADDR", ":8080"),
			ReadTimeout:  durVar("TASKFLOW_SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: durVar("TASKFLOW_SERVER_WRITE_TIMEOUT", 30*time.Second),
			CORSOrigins:  getEnvList("TASKFLOW_CORS_ORIGINS", []string{"http://localhost:5173"}),
			RateLimit:    floatVar("TASKFLOW_RATE_LIMIT", 50),
			RateBurst:    intVar("TASKFLOW_RATE_BURST", 100),
		},
		Slack: SlackConfig{
			BotToken: getEnv("TASKFLOW_SLACK_BOT_TOKEN", ""),
		},
		Log: LogConfig{
			Level:      getEnv("TASKFLOW_LOG_LEVEL", "info"),
			Format:     getEnv("TASKFLOW_LOG_FORMAT", "json"),
			File:       getEnv("TASKFLOW_LOG_FILE", ""),
			MaxSizeMB:  intVar("TASKFLOW_LOG_MAX_SIZE_MB", 100),
			MaxBackups: intVar("TASKFLOW_LOG_MAX_BACKUPS", 5),
			MaxAgeDays: intVar("TASKFLOW_LOG_MAX_AGE_DAYS", 28),
		},
		Notify: NotifyConfig{
			Timeout:            durVar("TASKFLOW_NOTIFY_TIMEOUT", 10*time.Second),
			BreakerMaxFailures: intVar("TASKFLOW_NOTIFY_BREAKER_FAILURES", 5),
			BreakerOpenTimeout: durVar("TASKFLOW_NOTIFY_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:        boolVar("TASKFLOW_TELEMETRY_ENABLED", false),
			MetricInterval: durVar("TASKFLOW_TELEMETRY_METRIC_INTERVAL", time.Minute),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("TASKFLOW_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("TASKFLOW_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("TASKFLOW_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("TASKFLOW_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("TASKFLOW_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("TASKFLOW_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("TASKFLOW_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("TASKFLOW_RATE_LIMIT must be positive, got %g", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("TASKFLOW_RATE_BURST must be >= 1, got %d", c.Server.RateBurst)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("TASKFLOW_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("TASKFLOW_NOTIFY_TIMEOUT must be positive, got %s", c.Notify.Timeout)
	}
	if c.Notify.BreakerMaxFailures < 1 {
		return fmt.Errorf("TASKFLOW_NOTIFY_BREAKER_FAILURES must be >= 1, got %d", c.Notify.BreakerMaxFailures)
	}
	if c.Telemetry.Enabled && c.Telemetry.MetricInterval <= 0 {
		return fmt.Errorf("TASKFLOW_TELEMETRY_METRIC_INTERVAL must be positive, got %s", c.Telemetry.MetricInterval)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
