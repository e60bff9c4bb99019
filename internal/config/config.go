// Package config provides configuration management for the lotkeeper
// service. It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Agent     AgentConfig
	Stats     StatsConfig
	Guard     GuardConfig
	Rollup    RollupConfig
	Retention RetentionConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// URL returns the database URL used by the migration tooling.
func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// AgentConfig holds scraper agent access configuration
type AgentConfig struct {
	Token string
}

// StatsConfig holds the robust-statistics tunables
type StatsConfig struct {
	MinSamples int
	MADFactor  float64
	IQRFactor  float64
}

// GuardConfig holds the snapshot anomaly guard tunables
type GuardConfig struct {
	// ThresholdRatio is the fraction of the previous auction count a new
	// snapshot must reach to be accepted.
	ThresholdRatio float64
	// Lookback bounds how far back the previous activity rollup may be.
	Lookback time.Duration
}

// RollupConfig holds deferred aggregation configuration
type RollupConfig struct {
	// Delay between an accepted ingestion and the rollup run.
	Delay time.Duration
	// MaxRetries bounds retry attempts for a failed deferred rollup.
	MaxRetries int
}

// RetentionConfig holds historical datapoint retention configuration
type RetentionConfig struct {
	DatapointTTLDays int
}

// CacheConfig holds query cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// RateLimitConfig holds agent rate limiting configuration
type RateLimitConfig struct {
	AgentRPS   int
	AgentBurst int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("LOT_SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("LOT_SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("LOT_SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("LOT_SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("LOT_SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("LOT_POSTGRES_HOST", "localhost"),
				Port:           getEnv("LOT_POSTGRES_PORT", "5432"),
				Database:       getEnv("LOT_POSTGRES_DB", "lotkeeper"),
				User:           getEnv("LOT_POSTGRES_USER", "postgres"),
				Password:       getEnv("LOT_POSTGRES_PASSWORD", "postgres"),
				MaxConnections: getEnvAsInt("LOT_POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("LOT_CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("LOT_CLICKHOUSE_PORT", "9000"),
				Database: getEnv("LOT_CLICKHOUSE_DB", "lotkeeper"),
				User:     getEnv("LOT_CLICKHOUSE_USER", "default"),
				Password: getEnv("LOT_CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("LOT_REDIS_HOST", "localhost"),
				Port:           getEnv("LOT_REDIS_PORT", "6379"),
				Password:       getEnv("LOT_REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("LOT_REDIS_DB", 0),
				MaxConnections: getEnvAsInt("LOT_REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Agent: AgentConfig{
			Token: getEnv("LOT_AGENT_TOKEN", ""),
		},
		Stats: StatsConfig{
			MinSamples: getEnvAsInt("LOT_STATS_MIN_SAMPLES", 10),
			MADFactor:  getEnvAsFloat("LOT_STATS_MAD_FACTOR", 3.0),
			IQRFactor:  getEnvAsFloat("LOT_STATS_IQR_FACTOR", 1.5),
		},
		Guard: GuardConfig{
			ThresholdRatio: getEnvAsFloat("LOT_GUARD_THRESHOLD_RATIO", 0.8),
			Lookback:       getEnvAsDuration("LOT_GUARD_LOOKBACK", time.Hour),
		},
		Rollup: RollupConfig{
			Delay:      getEnvAsDuration("LOT_ROLLUP_DELAY", 30*time.Second),
			MaxRetries: getEnvAsInt("LOT_ROLLUP_MAX_RETRIES", 3),
		},
		Retention: RetentionConfig{
			DatapointTTLDays: getEnvAsInt("LOT_DATAPOINT_TTL_DAYS", 90),
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("LOT_CACHE_TTL", 60*time.Second),
		},
		RateLimit: RateLimitConfig{
			AgentRPS:   getEnvAsInt("LOT_AGENT_RATE_LIMIT_RPS", 2),
			AgentBurst: getEnvAsInt("LOT_AGENT_RATE_LIMIT_BURST", 5),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOT_LOG_LEVEL", "info"),
			Format: getEnv("LOT_LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
