package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yashrajoria/webook/database"
)

// Config holds all configuration for the webook server.
type Config struct {
	Port string
	Env  string

	DB database.Config

	RedisURL string
	CacheTTL time.Duration

	AdminEmail   string
	JWTSecret    string
	TokenTTL     time.Duration
	RequireAdmin bool

	AllowedOrigins     string
	RateLimitPerMinute int
	RequestTimeout     time.Duration

	// SNS topic for domain events
	SNSTopicARN string
}

// LoadConfig reads configuration from environment variables, after
// loading an optional .env file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),
		DB: database.Config{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", database.DriverPostgres)),
			PostgresUser:     os.Getenv("POSTGRES_USER"),
			PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
			PostgresDB:       os.Getenv("POSTGRES_DB"),
			PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
			PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
			PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
			MySQLDSN:         os.Getenv("MYSQL_DSN"),
			SQLitePath:       getEnv("SQLITE_PATH", "webook.db"),
		},
		RedisURL:       os.Getenv("REDIS_URL"),
		AdminEmail:     getEnv("ADMIN_EMAIL", "admin@webook.com"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		SNSTopicARN:    os.Getenv("AWS_SNS_TOPIC_ARN"),
	}

	var err error
	if cfg.DB.MaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	cfg.DB.MaxIdleConns = cfg.DB.MaxOpenConns
	if cfg.DB.Retries, err = getEnvInt("DB_CONNECT_RETRIES", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", 600); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getEnvDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequireAdmin, err = getEnvBool("REQUIRE_ADMIN", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case database.DriverPostgres:
		if c.DB.PostgresUser == "" || c.DB.PostgresDB == "" {
			return fmt.Errorf("database config incomplete: POSTGRES_USER and POSTGRES_DB are required")
		}
	case database.DriverMySQL:
		if c.DB.MySQLDSN == "" {
			return fmt.Errorf("database config incomplete: MYSQL_DSN is required")
		}
	case database.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}

	if c.JWTSecret == "" {
		if c.Env == "production" {
			return fmt.Errorf("JWT_SECRET environment variable not set")
		}
		c.JWTSecret = "webook-dev-secret"
	}
	if c.RequireAdmin && c.Env != "production" && c.JWTSecret == "webook-dev-secret" {
		return fmt.Errorf("REQUIRE_ADMIN needs an explicit JWT_SECRET")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
