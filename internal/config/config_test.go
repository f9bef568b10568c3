package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BACKEND_URL", "http://backend:8080/api")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
	assert.Equal(t, SeatConfig{Rows: 8, PerRow: 10, MaxPerBooking: 8, HoldTTL: 5 * time.Minute}, cfg.Seats)
	assert.Equal(t, "/my-tickets", cfg.Payment.SuccessPath)
	assert.Equal(t, 5*time.Second, cfg.Payment.SuccessCountdown)
	assert.Equal(t, 10*time.Second, cfg.Payment.FailureCountdown)
	assert.Equal(t, "rl", cfg.RateLimit.Prefix)
	assert.Equal(t, 30*24*time.Hour, cfg.DB.AttemptRetention)
	assert.Equal(t, time.Hour, cfg.DB.PurgeEvery)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BACKEND_URL", "http://backend")
	t.Setenv("SEAT_ROWS", "12")
	t.Setenv("MAX_SEATS_PER_BOOKING", "4")
	t.Setenv("SEAT_HOLD_TTL", "90s")
	t.Setenv("DB_HOST", "mysql")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Seats.Rows)
	assert.Equal(t, 4, cfg.Seats.MaxPerBooking)
	assert.Equal(t, 90*time.Second, cfg.Seats.HoldTTL)
	assert.True(t, cfg.DB.Enabled())
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BACKEND_URL", "")

	_, err := Load()
	assert.EqualError(t, err, "missing required env vars: JWT_SECRET, BACKEND_URL")
}

func TestLoadRejectsBadLayout(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BACKEND_URL", "http://backend")
	t.Setenv("SEAT_ROWS", "27")

	_, err := Load()
	assert.Error(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "3m")
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, 3*time.Minute, envDur("X_DUR", time.Second))
	assert.True(t, envBool("X_UNSET_FLAG", true))
}
