// Package config loads engine configuration from a YAML file with
// environment variable overrides. A .env file is honored when present.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/jwillikers/content-rating/internal/logging"
)

// Config holds all configuration for the content rating engine.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	Logging  logging.Config `yaml:"logging"`
	Rating   RatingConfig   `yaml:"rating"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `env:"SERVICE_NAME" env-default:"content-rating" yaml:"name"`
	Version string `env:"SERVICE_VERSION" env-default:"1.0.0" yaml:"version"`
}

// DatabaseConfig holds backing store configuration. Driver selects between
// postgres and sqlite3; Path is only used by sqlite3.
type DatabaseConfig struct {
	Driver   string `env:"DB_DRIVER" env-default:"sqlite3" yaml:"driver"`
	Host     string `env:"POSTGRES_HOST" env-default:"localhost" yaml:"host"`
	Port     int    `env:"POSTGRES_PORT" env-default:"5432" yaml:"port"`
	User     string `env:"POSTGRES_USER" env-default:"postgres" yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_DB" env-default:"content_rating" yaml:"database"`
	SSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable" yaml:"sslmode"`
	Path     string `env:"SQLITE_PATH" env-default:"content_rating.db" yaml:"path"`

	MaxConnections int `env:"DB_MAX_CONNECTIONS" env-default:"25" yaml:"max_connections"`
	MaxIdleConns   int `env:"DB_MAX_IDLE_CONNECTIONS" env-default:"5" yaml:"max_idle_connections"`
}

// RatingConfig holds rating pipeline settings.
type RatingConfig struct {
	// SubmissionsPerSecond bounds rating submissions across all users.
	// Zero or negative disables the limiter.
	SubmissionsPerSecond int `env:"RATING_SUBMISSIONS_PER_SECOND" env-default:"0" yaml:"submissions_per_second"`
	// SubmissionBurst is the limiter burst size.
	SubmissionBurst int `env:"RATING_SUBMISSION_BURST" env-default:"0" yaml:"submission_burst"`
}

// Load reads the YAML config at path and applies environment overrides.
// A missing file is not an error: configuration then comes entirely from
// the environment. A .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	// Non-fatal when absent.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return &cfg, nil
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from environment: %w", err)
	}
	return &cfg, nil
}

// Path returns the config path from CONFIG_PATH or the given default.
func Path(defaultPath string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultPath
}
