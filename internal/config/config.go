package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/segyhp/microcredit-engine/internal/billing"
	"github.com/segyhp/microcredit-engine/pkg/utils"
)

const defaultJWTSecret = "dev-secret-change-me"

// Config holds all configuration for our application
type Config struct {
	Server       ServerConfig       `mapstructure:",squash"`
	Database     DatabaseConfig     `mapstructure:",squash"`
	Redis        RedisConfig        `mapstructure:",squash"`
	Scheduler    SchedulerConfig    `mapstructure:",squash"`
	Logging      LoggingConfig      `mapstructure:",squash"`
	Business     BusinessConfig     `mapstructure:",squash"`
	Health       HealthConfig       `mapstructure:",squash"`
	Notification NotificationConfig `mapstructure:",squash"`
	Auth         AuthConfig         `mapstructure:",squash"`
	Gateway      GatewayConfig      `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	Host            string        `mapstructure:"DATABASE_HOST"`
	Port            string        `mapstructure:"DATABASE_PORT"`
	Name            string        `mapstructure:"DATABASE_NAME"`
	User            string        `mapstructure:"DATABASE_USER"`
	Password        string        `mapstructure:"DATABASE_PASSWORD"`
	SSLMode         string        `mapstructure:"DATABASE_SSLMODE"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `mapstructure:"DATABASE_AUTO_MIGRATE"`
}

type RedisConfig struct {
	URL      string        `mapstructure:"REDIS_URL"`
	Host     string        `mapstructure:"REDIS_HOST"`
	Port     string        `mapstructure:"REDIS_PORT"`
	Password string        `mapstructure:"REDIS_PASSWORD"`
	DB       int           `mapstructure:"REDIS_DB"`
	CacheTTL time.Duration `mapstructure:"REDIS_CACHE_TTL"`
}

type SchedulerConfig struct {
	Interval     string `mapstructure:"SCHEDULER_INTERVAL"`
	Timezone     string `mapstructure:"SCHEDULER_TIMEZONE"`
	ReminderSpec string `mapstructure:"SCHEDULER_REMINDER_SPEC"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	DefaultInterestRate       string `mapstructure:"DEFAULT_INTEREST_RATE"`
	CashAllocationStrategy    string `mapstructure:"CASH_ALLOCATION_STRATEGY"`
	GatewayAllocationStrategy string `mapstructure:"GATEWAY_ALLOCATION_STRATEGY"`
	ReminderDaysAhead         int    `mapstructure:"REMINDER_DAYS_AHEAD"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

type NotificationConfig struct {
	Driver       string        `mapstructure:"NOTIFICATION_DRIVER"`
	SMTPHost     string        `mapstructure:"SMTP_HOST"`
	SMTPPort     int           `mapstructure:"SMTP_PORT"`
	SMTPUsername string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string        `mapstructure:"SMTP_PASSWORD"`
	From         string        `mapstructure:"NOTIFICATION_FROM"`
	MaxAttempts  int           `mapstructure:"NOTIFICATION_MAX_ATTEMPTS"`
	RetryBackoff time.Duration `mapstructure:"NOTIFICATION_RETRY_BACKOFF"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"JWT_SECRET"`
}

type GatewayConfig struct {
	WebhookSecret string `mapstructure:"GATEWAY_WEBHOOK_SECRET"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":                 "8080",
	"SERVER_HOST":                 "0.0.0.0",
	"ENV":                         "development",
	"SERVER_READ_TIMEOUT":         "15s",
	"SERVER_WRITE_TIMEOUT":        "15s",
	"DATABASE_URL":                "",
	"DATABASE_HOST":               "localhost",
	"DATABASE_PORT":               "5432",
	"DATABASE_NAME":               "microcredit",
	"DATABASE_USER":               "postgres",
	"DATABASE_PASSWORD":           "",
	"DATABASE_SSLMODE":            "disable",
	"DATABASE_MAX_OPEN_CONNS":     25,
	"DATABASE_MAX_IDLE_CONNS":     5,
	"DATABASE_CONN_MAX_LIFETIME":  "5m",
	"DATABASE_AUTO_MIGRATE":       false,
	"REDIS_URL":                   "",
	"REDIS_HOST":                  "localhost",
	"REDIS_PORT":                  "6379",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"REDIS_CACHE_TTL":             "10m",
	"SCHEDULER_INTERVAL":          "24h",
	"SCHEDULER_TIMEZONE":          "Asia/Jakarta",
	"SCHEDULER_REMINDER_SPEC":     "0 0 9 * * *",
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "json",
	"DEFAULT_INTEREST_RATE":       "20",
	"CASH_ALLOCATION_STRATEGY":    string(billing.StrategyCascade),
	"GATEWAY_ALLOCATION_STRATEGY": string(billing.StrategyCascade),
	"REMINDER_DAYS_AHEAD":         3,
	"HEALTH_CHECK_TIMEOUT":        "5s",
	"NOTIFICATION_DRIVER":         "log",
	"SMTP_HOST":                   "localhost",
	"SMTP_PORT":                   587,
	"SMTP_USERNAME":               "",
	"SMTP_PASSWORD":               "",
	"NOTIFICATION_FROM":           "no-reply@microcredit.local",
	"NOTIFICATION_MAX_ATTEMPTS":   3,
	"NOTIFICATION_RETRY_BACKOFF":  "500ms",
	"JWT_SECRET":                  defaultJWTSecret,
	"GATEWAY_WEBHOOK_SECRET":      "",
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Populate the process environment from .env when present
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("DATABASE_URL or DATABASE_HOST is required")
	}

	// Validate interest rate
	rate, err := utils.DecimalFromString(c.Business.DefaultInterestRate)
	if err != nil {
		return fmt.Errorf("DEFAULT_INTEREST_RATE must be a valid decimal: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1000)) {
		return fmt.Errorf("DEFAULT_INTEREST_RATE must be between 0 and 1000")
	}

	if _, err := billing.ParseStrategy(c.Business.CashAllocationStrategy); err != nil {
		return fmt.Errorf("CASH_ALLOCATION_STRATEGY: %w", err)
	}

	if _, err := billing.ParseStrategy(c.Business.GatewayAllocationStrategy); err != nil {
		return fmt.Errorf("GATEWAY_ALLOCATION_STRATEGY: %w", err)
	}

	if c.Business.ReminderDaysAhead < 0 {
		return fmt.Errorf("REMINDER_DAYS_AHEAD must not be negative")
	}

	// Validate scheduler interval
	if _, err := time.ParseDuration(c.Scheduler.Interval); err != nil {
		return fmt.Errorf("SCHEDULER_INTERVAL must be a valid duration: %w", err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid IANA zone: %w", err)
	}

	// Validate health check timeout
	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
	}

	switch c.Notification.Driver {
	case "log", "smtp":
	default:
		return fmt.Errorf("NOTIFICATION_DRIVER must be log or smtp")
	}

	if c.Notification.MaxAttempts <= 0 {
		return fmt.Errorf("NOTIFICATION_MAX_ATTEMPTS must be greater than 0")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.IsProduction() {
		if c.Auth.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be changed in production")
		}
		if c.Gateway.WebhookSecret == "" {
			return fmt.Errorf("GATEWAY_WEBHOOK_SECRET is required in production")
		}
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// DSN returns the lib/pq connection string. DATABASE_URL wins when set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Addr returns host:port for the redis client
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// GetDefaultInterestRate returns the default interest rate as decimal
func (c *Config) GetDefaultInterestRate() decimal.Decimal {
	rate, _ := utils.DecimalFromString(c.Business.DefaultInterestRate)
	return rate
}

// CashStrategy is the allocation strategy for payments entered at the counter
func (c *Config) CashStrategy() billing.Strategy {
	s, _ := billing.ParseStrategy(c.Business.CashAllocationStrategy)
	return s
}

// GatewayStrategy is the allocation strategy for gateway-verified payments
func (c *Config) GatewayStrategy() billing.Strategy {
	s, _ := billing.ParseStrategy(c.Business.GatewayAllocationStrategy)
	return s
}

// GetSchedulerInterval returns the scheduler interval as duration
func (c *Config) GetSchedulerInterval() time.Duration {
	duration, _ := time.ParseDuration(c.Scheduler.Interval)
	return duration
}

// GetSchedulerLocation returns the time zone scheduled jobs run in
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// RedactedDSN is DSN with the password masked, for logging
func (d DatabaseConfig) RedactedDSN() string {
	dsn := d.DSN()
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		return u.Redacted()
	}
	if d.Password != "" {
		return strings.ReplaceAll(dsn, d.Password, "xxxxx")
	}
	return dsn
}
