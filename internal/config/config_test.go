package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_PORT", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "America/Sao_Paulo", cfg.App.Timezone)
	assert.Equal(t, 3, cfg.Notification.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("POSTGRES_MAX_CONNS", "25")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("NOTIFY_WORKER_INTERVAL_SECONDS", "5")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.EqualValues(t, 25, cfg.Postgres.MaxConns)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 5*time.Second, cfg.Notification.WorkerInterval())
	assert.Equal(t, time.UTC, cfg.App.Location())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "abc")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("timezone", func(t *testing.T) {
		t.Setenv("APP_TIMEZONE", "Not/AZone")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("production secret", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("AUTH_JWT_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "soon")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.App.RequestTimeoutSeconds)
}
