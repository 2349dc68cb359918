package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Jobs     JobsConfig     `mapstructure:"jobs" validate:"required"`
	Mail     MailConfig     `mapstructure:"mail" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel            string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds" validate:"gte=1"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	Algorithm            string `mapstructure:"algorithm" validate:"required,oneof=HS256 HS384 HS512"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lt=44641"` // Max 31 days
	CookieName           string `mapstructure:"cookie_name" validate:"required"`
	CookieSecure         bool   `mapstructure:"cookie_secure"`
	BCryptCost           int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// TokenLifetime returns TokenLifetimeMinutes as a duration.
func (a AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(a.TokenLifetimeMinutes) * time.Minute
}

// JobsConfig tunes the background job runner that delivers notifications.
type JobsConfig struct {
	WorkerCount        int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize          int `mapstructure:"queue_size" validate:"gte=1"`
	MaxAttempts        int `mapstructure:"max_attempts" validate:"gte=1"`
	StuckJobAgeMinutes int `mapstructure:"stuck_job_age_minutes" validate:"gte=1"`
}

// MailConfig selects how status-change emails are delivered.
// In "file" mode messages are written as HTML files under FileDir instead of
// being sent, which is the development default.
type MailConfig struct {
	Mode         string `mapstructure:"mode" validate:"required,oneof=file smtp"`
	From         string `mapstructure:"from" validate:"required,email"`
	FileDir      string `mapstructure:"file_dir" validate:"required_if=Mode file"`
	SMTPHost     string `mapstructure:"smtp_host" validate:"required_if=Mode smtp"`
	SMTPPort     int    `mapstructure:"smtp_port" validate:"required_if=Mode smtp,gte=0,lt=65536"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
}
