package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Admin    AdminConfig    `koanf:"admin"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AdminConfig is the configuration surface of the admin engine
type AdminConfig struct {
	MaxConcurrency  int           `koanf:"max_concurrency" validate:"gte=0"`
	PerItemTimeout  time.Duration `koanf:"per_item_timeout" validate:"gte=0"`
	PollInterval    time.Duration `koanf:"poll_interval" validate:"gt=0"`
	TopK            int           `koanf:"top_k" validate:"gt=0"`
	RetentionWindow time.Duration `koanf:"retention_window" validate:"gt=0"`
	RiskWindow      time.Duration `koanf:"risk_window" validate:"gt=0"`

	SensitiveActions []string `koanf:"sensitive_actions"`

	Thresholds map[string]ThresholdConfig `koanf:"thresholds" validate:"dive"`

	Notification NotificationConfig `koanf:"notification"`
}

type ThresholdConfig struct {
	Warning  float64 `koanf:"warning"`
	Critical float64 `koanf:"critical" validate:"gtfield=Warning"`
}

type NotificationConfig struct {
	WebhookURL    string  `koanf:"webhook_url" validate:"omitempty,url"`
	RatePerSecond float64 `koanf:"rate_per_second" validate:"gt=0"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load defaults
	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB: 0,
		},
		Admin: AdminConfig{
			MaxConcurrency:  1,
			PerItemTimeout:  0,
			PollInterval:    30 * time.Second,
			TopK:            10,
			RetentionWindow: 90 * 24 * time.Hour,
			RiskWindow:      time.Hour,
			SensitiveActions: []string{
				"delete", "suspend", "ban", "settings_change", "export",
			},
			Thresholds: map[string]ThresholdConfig{
				"CpuUsage":        {Warning: 70, Critical: 90},
				"MemoryUsage":     {Warning: 75, Critical: 90},
				"BatchFailRate":   {Warning: 0.1, Critical: 0.25},
				"HighRiskEntries": {Warning: 500, Critical: 2000},
			},
			Notification: NotificationConfig{
				RatePerSecond: 1,
			},
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Load from config file if exists
	if err := k.Load(file.Provider("configs/config.yaml"), yaml.Parser()); err != nil {
		// Config file is optional
	}

	// Override with environment variables
	if err := k.Load(env.Provider("INKWELL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "INKWELL_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks structural constraints on the loaded configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
