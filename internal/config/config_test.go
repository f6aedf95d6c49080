package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidKeys(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_SESSION_KEY", strings.Repeat("s", 32))
	t.Setenv("AUTH_VERIFICATION_KEY", strings.Repeat("v", 32))
	t.Setenv("AUTH_RESET_KEY", strings.Repeat("r", 32))
}

func TestLoadDefaults(t *testing.T) {
	setValidKeys(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 90*24*time.Hour, cfg.Auth.SessionDuration)
	assert.Equal(t, "https://fcm.googleapis.com/fcm/send", cfg.Push.Endpoint)
	assert.Equal(t, time.Second, cfg.Push.PacingInterval)
	assert.Equal(t, "http://www.mapquestapi.com", cfg.Geocode.BaseURL)
}

func TestLoadOverrides(t *testing.T) {
	setValidKeys(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("AUTH_SESSION_DURATION", "3600")
	t.Setenv("TRUSTED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, time.Hour, cfg.Auth.SessionDuration)
	assert.Equal(t,
		[]string{"https://app.example.com", "https://admin.example.com"},
		cfg.Server.TrustedOrigins)
}

func TestLoadRejectsBadKeyLength(t *testing.T) {
	setValidKeys(t)
	t.Setenv("AUTH_VERIFICATION_KEY", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_VERIFICATION_KEY")
}

func TestConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "app",
		Password: "secret",
		DBName:   "elevate",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=app password=secret dbname=elevate sslmode=require",
		cfg.ConnectionString())
}

func TestRedisAddress(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: "6380"}
	assert.Equal(t, "cache.internal:6380", cfg.Address())
}
