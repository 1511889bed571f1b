package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CLINIC_API_URL", "https://records.example.com/api")
	t.Setenv("WIZARD_RESET_DELAY", "500ms")
	t.Setenv("LOG_FORMAT", "ecs")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, 2, cfg.MinIO.StagingExpiryDays)
	assert.Equal(t, "https://records.example.com/api", cfg.ClinicAPI.URL)
	assert.Equal(t, 30*time.Second, cfg.ClinicAPI.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Wizard.ResetDelay)
	assert.Equal(t, time.Minute, cfg.Wizard.SubmitTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Wizard.SessionTTL)
	assert.Equal(t, "ecs", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_ENV_VAR", "value")

	assert.Equal(t, "value", getEnv("TEST_ENV_VAR", "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	t.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	t.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	t.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	t.Setenv(key, "")
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	t.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	t.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	t.Setenv(key, "")
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_DURATION_VAR"

	t.Setenv(key, "1m30s")
	assert.Equal(t, 90*time.Second, getEnvDuration(key, 0))

	t.Setenv(key, "5")
	assert.Equal(t, 5*time.Second, getEnvDuration(key, 0))

	t.Setenv(key, "soon")
	assert.Equal(t, time.Second, getEnvDuration(key, time.Second))

	t.Setenv(key, "")
	assert.Equal(t, time.Second, getEnvDuration(key, time.Second))
}
