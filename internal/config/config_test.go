package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/microcredit-engine/internal/billing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, billing.StrategyCascade, cfg.CashStrategy())
	assert.Equal(t, billing.StrategyCascade, cfg.GatewayStrategy())
	assert.Equal(t, 24*time.Hour, cfg.GetSchedulerInterval())
	assert.Equal(t, 5*time.Second, cfg.GetHealthTimeout())
	assert.Equal(t, 3, cfg.Notification.MaxAttempts)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CASH_ALLOCATION_STRATEGY", "next_installment")
	t.Setenv("REMINDER_DAYS_AHEAD", "7")
	t.Setenv("DATABASE_AUTO_MIGRATE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, billing.StrategyNextInstallment, cfg.CashStrategy())
	assert.Equal(t, 7, cfg.Business.ReminderDaysAhead)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoad_RejectsUnknownStrategy(t *testing.T) {
	t.Setenv("GATEWAY_ALLOCATION_STRATEGY", "random")

	_, err := Load()

	assert.ErrorContains(t, err, "GATEWAY_ALLOCATION_STRATEGY")
}

func validConfig() *Config {
	return &Config{
		Server:       ServerConfig{Port: "8080", Env: "development"},
		Database:     DatabaseConfig{Host: "localhost"},
		Scheduler:    SchedulerConfig{Interval: "24h", Timezone: "UTC"},
		Business:     BusinessConfig{DefaultInterestRate: "20", CashAllocationStrategy: "cascade", GatewayAllocationStrategy: "cascade"},
		Health:       HealthConfig{Timeout: "5s"},
		Notification: NotificationConfig{Driver: "log", MaxAttempts: 1},
		Auth:         AuthConfig{JWTSecret: defaultJWTSecret},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "SERVER_PORT"},
		{name: "bad rate", mutate: func(c *Config) { c.Business.DefaultInterestRate = "abc" }, wantErr: "DEFAULT_INTEREST_RATE"},
		{name: "negative rate", mutate: func(c *Config) { c.Business.DefaultInterestRate = "-1" }, wantErr: "DEFAULT_INTEREST_RATE"},
		{name: "rate above column range", mutate: func(c *Config) { c.Business.DefaultInterestRate = "10000" }, wantErr: "DEFAULT_INTEREST_RATE"},
		{name: "bad interval", mutate: func(c *Config) { c.Scheduler.Interval = "daily" }, wantErr: "SCHEDULER_INTERVAL"},
		{name: "bad timezone", mutate: func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, wantErr: "SCHEDULER_TIMEZONE"},
		{name: "bad driver", mutate: func(c *Config) { c.Notification.Driver = "pigeon" }, wantErr: "NOTIFICATION_DRIVER"},
		{
			name: "default secret in production",
			mutate: func(c *Config) {
				c.Server.Env = "production"
				c.Gateway.WebhookSecret = "whsec"
			},
			wantErr: "JWT_SECRET",
		},
		{
			name: "production without webhook secret",
			mutate: func(c *Config) {
				c.Server.Env = "production"
				c.Auth.JWTSecret = "real-secret"
			},
			wantErr: "GATEWAY_WEBHOOK_SECRET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		Name:     "microcredit",
		User:     "app",
		Password: "s3cret",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://app:s3cret@db:5432/microcredit?sslmode=disable", d.DSN())
	assert.NotContains(t, d.RedactedDSN(), "s3cret")

	d.URL = "postgres://override/db"
	assert.Equal(t, "postgres://override/db", d.DSN())
}
