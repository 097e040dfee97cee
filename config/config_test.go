package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "2024-01-01", cfg.Data.DefaultStart)
	assert.Equal(t, "2025-08-30", cfg.Data.DefaultEnd)
	assert.Equal(t, 5*time.Minute, cfg.Data.CacheTTL)
	assert.Equal(t, time.Second, cfg.Session.Delay)
	assert.Equal(t, 30, cfg.Data.ForecastDays)
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
http:
  addr: ":7000"
  rate_limit: 5
data:
  seed: 42
  cache_backend: redis
  cache_ttl: 90s
session:
  backend: sqlite
  delay: 250ms
warm:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("HTTP_ADDR", ":7100")
	t.Setenv("REDIS_ADDR", "redis:6380")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":7100", cfg.HTTP.Addr, "env beats yaml")
	assert.Equal(t, 5.0, cfg.HTTP.RateLimit)
	assert.EqualValues(t, 42, cfg.Data.Seed)
	assert.Equal(t, BackendRedis, cfg.Data.CacheBackend)
	assert.Equal(t, 90*time.Second, cfg.Data.CacheTTL)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, BackendSQLite, cfg.Session.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.Delay)
	assert.False(t, cfg.Warm.Enabled)
	// untouched keys keep defaults
	assert.Equal(t, ":9090", cfg.HTTP.MetricsAddr)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().HTTP.Addr, cfg.HTTP.Addr)
}

func TestLoadFile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unterminated"), 0o644))
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestEnvHelpers_InvalidFallsBack(t *testing.T) {
	t.Setenv("RATE_BURST", "lots")
	t.Setenv("SESSION_DELAY", "soon")
	t.Setenv("WARM_ON_START", "maybe")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.HTTP.RateBurst)
	assert.Equal(t, time.Second, cfg.Session.Delay)
	assert.True(t, cfg.Warm.OnStart)
}

func TestValidate_Errors(t *testing.T) {
	cfg := Default()
	cfg.Data.CacheBackend = "memcached"
	cfg.Session.Backend = "postgres"
	cfg.Data.ForecastDays = 0
	cfg.Data.DefaultEnd = "30/08/2025"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"cache_backend", "session.backend", "forecast_days", "default_end"} {
		assert.Contains(t, err.Error(), want)
	}
}
