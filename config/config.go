/*
Package config loads server configuration.

SOURCES (highest priority first):
 1. Environment variables with the BOOKS_ prefix (BOOKS_DATABASE_PATH,
    BOOKS_LOG_LEVEL, BOOKS_SCHEDULER_INTERVAL, ...)
 2. books.yaml / books.toml in the working directory, or the file passed
    to Load
 3. Built-in defaults

Command-line flags in cmd/server override the loaded values.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all server configuration.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Profile   ProfileConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Audit     AuditConfig
}

// AppConfig holds application settings.
type AppConfig struct {
	Env      string
	Port     string
	ReadOnly bool
}

// DatabaseConfig points at the SQLite file. ":memory:" keeps everything
// in-process.
type DatabaseConfig struct {
	Path string
}

// ProfileConfig names the business profile used when a request carries no
// X-Profile-ID header.
type ProfileConfig struct {
	Default string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	CORSAllowOrigins []string
}

// SchedulerConfig controls the periodic audit.
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
	// Profiles to audit; empty means every profile with records.
	Profiles []string
}

// AuditConfig holds the comparison tolerance.
type AuditConfig struct {
	Epsilon decimal.Decimal
}

// Load reads configuration. An empty path searches the working directory
// for books.{yaml,toml}; a missing file is not an error. A path that is
// given must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("books")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("BOOKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			ReadOnly: v.GetBool("app.read_only"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Profile: ProfileConfig{
			Default: v.GetString("profile.default"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
		Scheduler: SchedulerConfig{
			Enabled:  v.GetBool("scheduler.enabled"),
			Interval: v.GetDuration("scheduler.interval"),
			Profiles: v.GetStringSlice("scheduler.profiles"),
		},
	}

	if raw := v.GetString("audit.epsilon"); raw != "" {
		eps, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("audit.epsilon: %w", err)
		}
		cfg.Audit.Epsilon = eps
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "bookkeeper.db"
	}
	if cfg.Profile.Default == "" {
		cfg.Profile.Default = "default"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if len(cfg.HTTP.CORSAllowOrigins) == 0 {
		cfg.HTTP.CORSAllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = time.Hour
	}
	if cfg.Audit.Epsilon.IsZero() {
		cfg.Audit.Epsilon = decimal.New(1, -2)
	}
}

// validate checks the loaded values for consistency.
func (c *Config) validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console; got %q", c.Log.Format)
	}
	if c.Scheduler.Interval < time.Second {
		return fmt.Errorf("scheduler.interval must be at least 1s; got %s", c.Scheduler.Interval)
	}
	if c.Audit.Epsilon.IsNegative() {
		return fmt.Errorf("audit.epsilon must not be negative")
	}
	for _, p := range c.Scheduler.Profiles {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("scheduler.profiles must not contain empty names")
		}
	}
	return nil
}

// Addr is the listen address for the configured port.
func (c *Config) Addr() string { return ":" + c.App.Port }

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool { return c.App.Env == "production" }
