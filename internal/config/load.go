package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables (prefix TASKMIRROR_, nested keys
// joined with underscores, e.g. TASKMIRROR_DATABASE_URL) take precedence
// over values from the config file, which takes precedence over defaults.
// Returns a populated Config struct or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TASKMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("materialization.horizon_days", 60)
	v.SetDefault("materialization.retention_days", 90)
	v.SetDefault("materialization.interval", time.Hour)
	v.SetDefault("materialization.pass_timeout", 10*time.Minute)

	v.SetDefault("sync.calendar_name", "TaskMirror")
	v.SetDefault("sync.user_timeout", 5*time.Minute)

	v.SetDefault("calendar.min_call_interval", 200*time.Millisecond)
	v.SetDefault("calendar.rate_penalty", 500*time.Millisecond)
	v.SetDefault("calendar.max_retries", 3)
}
