package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server          ServerConfig          `mapstructure:"server"          validate:"required"`
	Database        DatabaseConfig        `mapstructure:"database"        validate:"required"`
	Materialization MaterializationConfig `mapstructure:"materialization" validate:"required"`
	Sync            SyncConfig            `mapstructure:"sync"            validate:"required"`
	Calendar        CalendarConfig        `mapstructure:"calendar"        validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// MaterializationConfig controls the instance materialization engine and
// its periodic scheduler.
type MaterializationConfig struct {
	// HorizonDays is the forward window instances are guaranteed to exist for.
	HorizonDays int `mapstructure:"horizon_days" validate:"required,gt=0,lte=366"`

	// RetentionDays is how long completed and skipped instances are kept
	// before cleanup hard-deletes them.
	RetentionDays int `mapstructure:"retention_days" validate:"required,gt=0"`

	// Interval is how often the scheduler re-materializes every user.
	Interval time.Duration `mapstructure:"interval" validate:"required"`

	// PassTimeout bounds one full scheduler pass over all users.
	PassTimeout time.Duration `mapstructure:"pass_timeout" validate:"required"`
}

// SyncConfig controls the calendar sync engine.
type SyncConfig struct {
	// CalendarName is the name of the external calendar events are
	// mirrored into.
	CalendarName string `mapstructure:"calendar_name" validate:"required"`

	// UserTimeout bounds one bulk sync pass for a single user.
	UserTimeout time.Duration `mapstructure:"user_timeout" validate:"required"`
}

// CalendarConfig contains settings for the external calendar API client.
type CalendarConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Token   string `mapstructure:"token"    validate:"required"`

	// MinCallInterval is the baseline spacing between outbound API calls.
	MinCallInterval time.Duration `mapstructure:"min_call_interval" validate:"required"`

	// RatePenalty is added to the spacing for the rest of the current pass
	// each time the service responds with a rate-limit error.
	RatePenalty time.Duration `mapstructure:"rate_penalty" validate:"required"`

	// MaxRetries is the number of attempts for retryable errors.
	MaxRetries int `mapstructure:"max_retries" validate:"required,gte=1,lte=10"`
}
