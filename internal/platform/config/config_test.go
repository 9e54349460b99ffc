package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"ENGAGE_ADDR", "APP_ENV", "LOG_LEVEL", "RATE_LIMIT_WINDOW", "RATE_LIMIT_MAX",
		"CACHE_TTL", "REQUEST_TIMEOUT", "JWT_SIGNING_KEY", "REDIS_URL", "DATABASE_URL", "TRUSTED_PROXIES"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, RateLimit{Window: 15 * time.Minute, Max: 1000}, cfg.RateLimit)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.NotEmpty(t, cfg.JWT.SigningKey)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "prod-key")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("RATE_LIMIT_MAX", "60")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10,")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, RateLimit{Window: time.Minute, Max: 60}, cfg.RateLimit)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "prod-key", cfg.JWT.SigningKey)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, cfg.TrustedProxies)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Run("unparsable duration", func(t *testing.T) {
		t.Setenv("JWT_SIGNING_KEY", "k")
		t.Setenv("CACHE_TTL", "soon")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "CACHE_TTL")
	})

	t.Run("negative max", func(t *testing.T) {
		t.Setenv("JWT_SIGNING_KEY", "k")
		t.Setenv("RATE_LIMIT_MAX", "-1")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "RATE_LIMIT_MAX")
	})

	t.Run("production needs a signing key", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SIGNING_KEY", "")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "JWT_SIGNING_KEY")
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ENGAGE_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("ENGAGE_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("ENGAGE_TEST_DOTENV"))

	LoadDotEnv(filepath.Join(dir, "missing.env"), path)
	assert.Equal(t, "from-file", os.Getenv("ENGAGE_TEST_DOTENV"))
}
