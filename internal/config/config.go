package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Lock backends supported by the job scheduler
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Config holds all application configuration
type Config struct {
	// MLB StatsAPI
	StatsAPIBaseURL    string        `envconfig:"STATSAPI_BASE_URL" default:"https://statsapi.mlb.com"`
	StatsAPITimeout    time.Duration `envconfig:"STATSAPI_TIMEOUT" default:"30s"`
	StatsAPISportID    int           `envconfig:"STATSAPI_SPORT_ID" default:"1"`
	StatsAPIMaxRetries int           `envconfig:"STATSAPI_MAX_RETRIES" default:"3"`
	StatsAPIRetryDelay time.Duration `envconfig:"STATSAPI_RETRY_DELAY" default:"1s"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"runpool"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"runpool"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`
	MigrateOnStart   bool   `envconfig:"MIGRATE_ON_START" default:"true"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler    bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool          `envconfig:"INITIAL_SYNC_ENABLED" default:"false"`
	DailyRunCron       string        `envconfig:"DAILY_RUN_CRON" default:"10 9 21 * * *"`
	SchedulerTimezone  string        `envconfig:"SCHEDULER_TIMEZONE" default:"America/New_York"`
	LockBackend        string        `envconfig:"LOCK_BACKEND" default:"local"`
	LockKey            string        `envconfig:"LOCK_KEY" default:"runpool:daily-job"`
	LockTTL            time.Duration `envconfig:"LOCK_TTL" default:"2m"`

	// API Rate Limiting (requests per second against StatsAPI)
	APIRateLimit  float64 `envconfig:"API_RATE_LIMIT" default:"5"`
	APIBurstLimit int     `envconfig:"API_BURST_LIMIT" default:"2"`

	// Monitoring / admin HTTP
	EnableMetrics bool   `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int    `envconfig:"METRICS_PORT" default:"9090"`
	AdminToken    string `envconfig:"ADMIN_TOKEN" default:""`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if present
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.StatsAPISportID <= 0 {
		return fmt.Errorf("STATSAPI_SPORT_ID must be positive")
	}

	if _, err := cron.NewParser(CronFields).Parse(c.DailyRunCron); err != nil {
		return fmt.Errorf("DAILY_RUN_CRON is invalid: %w", err)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE is invalid: %w", err)
	}

	switch c.LockBackend {
	case LockBackendLocal, LockBackendRedis:
	default:
		return fmt.Errorf("LOCK_BACKEND must be %q or %q, got %q", LockBackendLocal, LockBackendRedis, c.LockBackend)
	}

	if c.LockBackend == LockBackendRedis && c.LockTTL < time.Second {
		return fmt.Errorf("LOCK_TTL must be at least 1s")
	}

	if c.IsProduction() && c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required in production")
	}

	return nil
}

// CronFields is the cron layout for DAILY_RUN_CRON (seconds first)
const CronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow

// Location returns the timezone the daily job and its "yesterday" run in
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.SchedulerTimezone)
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DatabaseUser, c.DatabasePassword),
		Host:     fmt.Sprintf("%s:%d", c.DatabaseHost, c.DatabasePort),
		Path:     c.DatabaseName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DatabaseSSLMode),
	}
	return u.String()
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// MustLoad loads configuration or exits on error
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
