package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "notifyq_db", cfg.Database.Database)
				assert.Equal(t, "push_gateway", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "push_deliveries", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, "notifyq", cfg.App.Name)
				assert.Equal(t, 30*time.Second, cfg.Scheduler.PollInterval)
				assert.Equal(t, 5, cfg.Scheduler.BatchSize)
				assert.Equal(t, 40, cfg.Scheduler.IdleTicksThreshold)
				assert.True(t, cfg.Scheduler.StartOnDemand)
				assert.Equal(t, 24*time.Hour, cfg.Janitor.Interval)
				assert.Equal(t, 30, cfg.Janitor.RetentionDays)
				assert.True(t, cfg.Redis.Enabled)
				assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
			}
		})
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		errString string
	}{
		{
			name:   "valid config passes",
			mutate: func(cfg *Config) {},
		},
		{
			name:      "invalid server port",
			mutate:    func(cfg *Config) { cfg.Server.Port = 0 },
			errString: "invalid server port",
		},
		{
			name:      "missing database host",
			mutate:    func(cfg *Config) { cfg.Database.Host = "" },
			errString: "database host is required",
		},
		{
			name:      "invalid database port",
			mutate:    func(cfg *Config) { cfg.Database.Port = 70000 },
			errString: "invalid database port",
		},
		{
			name:      "missing database name",
			mutate:    func(cfg *Config) { cfg.Database.Database = "" },
			errString: "database name is required",
		},
		{
			name:      "missing rabbitmq host",
			mutate:    func(cfg *Config) { cfg.RabbitMQ.Host = "" },
			errString: "rabbitmq host is required",
		},
		{
			name:      "missing exchange name",
			mutate:    func(cfg *Config) { cfg.RabbitMQ.Exchange.Name = "" },
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "redis enabled without addr",
			mutate:    func(cfg *Config) { cfg.Redis.Addr = "" },
			errString: "redis addr is required",
		},
		{
			name:      "zero poll interval",
			mutate:    func(cfg *Config) { cfg.Scheduler.PollInterval = 0 },
			errString: "poll_interval must be greater than 0",
		},
		{
			name:      "zero batch size",
			mutate:    func(cfg *Config) { cfg.Scheduler.BatchSize = 0 },
			errString: "batch_size must be greater than 0",
		},
		{
			name:      "zero idle threshold",
			mutate:    func(cfg *Config) { cfg.Scheduler.IdleTicksThreshold = 0 },
			errString: "idle_ticks_threshold must be greater than 0",
		},
		{
			name:      "zero default max attempts",
			mutate:    func(cfg *Config) { cfg.Scheduler.DefaultMaxAttempts = 0 },
			errString: "default_max_attempts must be greater than 0",
		},
		{
			name:      "zero janitor interval",
			mutate:    func(cfg *Config) { cfg.Janitor.Interval = 0 },
			errString: "janitor interval must be greater than 0",
		},
		{
			name:      "zero retention days",
			mutate:    func(cfg *Config) { cfg.Janitor.RetentionDays = 0 },
			errString: "retention_days must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errString == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			}
		})
	}
}
