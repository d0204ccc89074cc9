package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.False(t, cfg.App.ReadOnly)
	assert.Equal(t, "bookkeeper.db", cfg.Database.Path)
	assert.Equal(t, "default", cfg.Profile.Default)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "stdout", cfg.Log.Output)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Empty(t, cfg.Scheduler.Profiles)
	assert.True(t, cfg.Audit.Epsilon.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BOOKS_APP_PORT", "9090")
	t.Setenv("BOOKS_APP_ENV", "production")
	t.Setenv("BOOKS_APP_READ_ONLY", "true")
	t.Setenv("BOOKS_DATABASE_PATH", ":memory:")
	t.Setenv("BOOKS_SCHEDULER_ENABLED", "true")
	t.Setenv("BOOKS_SCHEDULER_INTERVAL", "5m")
	t.Setenv("BOOKS_AUDIT_EPSILON", "0.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.App.ReadOnly)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
	assert.True(t, cfg.Audit.Epsilon.Equal(decimal.RequireFromString("0.5")))
	// Production switches the default log format
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_File(t *testing.T) {
	// GIVEN: A YAML file naming two scheduled profiles
	dir := t.TempDir()
	path := filepath.Join(dir, "books.yaml")
	content := `
app:
  port: "7000"
profile:
  default: shop
log:
  level: debug
  format: json
scheduler:
  profiles: [shop, warehouse]
http:
  cors_allow_origins: ["https://books.example.com"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// WHEN: Loading it explicitly
	cfg, err := Load(path)
	require.NoError(t, err)

	// THEN: File values win over defaults
	assert.Equal(t, "7000", cfg.App.Port)
	assert.Equal(t, "shop", cfg.Profile.Default)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"shop", "warehouse"}, cfg.Scheduler.Profiles)
	assert.Equal(t, []string{"https://books.example.com"}, cfg.HTTP.CORSAllowOrigins)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("unknown log level", func(t *testing.T) {
		t.Setenv("BOOKS_LOG_LEVEL", "loud")
		_, err := Load("")
		assert.ErrorContains(t, err, "log.level")
	})

	t.Run("interval too short", func(t *testing.T) {
		t.Setenv("BOOKS_SCHEDULER_INTERVAL", "10ms")
		_, err := Load("")
		assert.ErrorContains(t, err, "scheduler.interval")
	})

	t.Run("epsilon not a number", func(t *testing.T) {
		t.Setenv("BOOKS_AUDIT_EPSILON", "tiny")
		_, err := Load("")
		assert.ErrorContains(t, err, "audit.epsilon")
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Empty(t, cfg.Scheduler.Profiles)
}
