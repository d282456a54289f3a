package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/upahan")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "Asia/Manila", cfg.Timezone)
	assert.Equal(t, "PHP", cfg.Currency)
	assert.Equal(t, time.Hour, cfg.OverdueSweepInterval)
	assert.Equal(t, 30*time.Second, cfg.WorkspaceCacheTTL)
	assert.Equal(t, 3, cfg.PaymentMaxRetries)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("production requires jwt secret", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/upahan")
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/upahan")
		t.Setenv("ENVIRONMENT", "development")
		t.Setenv("TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("SWEEP", "15m")
	assert.Equal(t, 15*time.Minute, getEnvAsDuration("SWEEP", time.Hour))

	t.Setenv("SWEEP", "soon")
	assert.Equal(t, time.Hour, getEnvAsDuration("SWEEP", time.Hour))
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("ORIGINS", "https://a.ph, https://b.ph")
	assert.Equal(t, []string{"https://a.ph", "https://b.ph"}, getEnvAsSlice("ORIGINS", nil))
}
