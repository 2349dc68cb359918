package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable key,
// e.g. TRACKER_AUTH_JWT_SECRET for auth.jwt_secret.
const EnvPrefix = "TRACKER"

// defaults lists every key with its default value. Every key must appear here
// (empty values included) so that viper resolves it from the environment
// during Unmarshal.
var defaults = map[string]any{
	"server.port":                        8080,
	"server.log_level":                   "info",
	"server.read_timeout_seconds":        15,
	"server.write_timeout_seconds":       15,
	"database.url":                       "",
	"database.max_open_conns":            10,
	"database.max_idle_conns":            5,
	"database.conn_max_lifetime_minutes": 5,
	"auth.jwt_secret":                    "",
	"auth.algorithm":                     "HS256",
	"auth.token_lifetime_minutes":        30,
	"auth.cookie_name":                   "task_tracker_token",
	"auth.cookie_secure":                 false,
	"auth.bcrypt_cost":                   10,
	"jobs.worker_count":                  2,
	"jobs.queue_size":                    100,
	"jobs.max_attempts":                  3,
	"jobs.stuck_job_age_minutes":         30,
	"mail.mode":                          "file",
	"mail.from":                          "tracker@example.com",
	"mail.file_dir":                      "tmp/mail",
	"mail.smtp_host":                     "",
	"mail.smtp_port":                     465,
	"mail.smtp_user":                     "",
	"mail.smtp_password":                 "",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom behaves like Load but looks for config.yaml in dir.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
