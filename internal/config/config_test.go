package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory so no stray .env is picked up.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"CONFIG_FILE", "WATCHTRACK_ADDR", "DATA_DIR", "STORE_BACKEND", "REDIS_ADDR",
		"POSTGRES_URL", "CATALOG_FILE", "MEDIA_ROOT", "SAMPLE_INTERVAL",
		"POSITION_SAVE_INTERVAL", "MAINTENANCE_CRON", "API_KEY_HASH", "CORS_ORIGINS",
		"RATE_LIMIT_RPM", "OTEL_ENABLED", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, time.Second, cfg.SampleInterval)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("SAMPLE_INTERVAL", "250ms")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("RATE_LIMIT_RPM", "not-a-number")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 600, cfg.RateLimitRPM, "invalid integers fall back to the default")
	assert.True(t, cfg.OTelEnabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "watchtrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
catalogFile: /srv/videos.yaml
store:
  backend: file
maintenanceCron: "0 3 * * *"
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WATCHTRACK_ADDR", ":9100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Addr, "environment wins over file")
	assert.Equal(t, "/srv/videos.yaml", cfg.CatalogFile)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "0 3 * * *", cfg.MaintenanceCron)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.Unsetenv("MEDIA_ROOT"))
	require.NoError(t, os.WriteFile(".env", []byte("MEDIA_ROOT=/media/library\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/media/library", cfg.MediaRoot)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, `unknown STORE_BACKEND "etcd"`},
		{"postgres without url", func(c *Config) { c.Store.Backend = BackendPostgres }, "POSTGRES_URL is required"},
		{"zero sample interval", func(c *Config) { c.SampleInterval = 0 }, "SAMPLE_INTERVAL must be positive"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, `invalid LOG_LEVEL "loud"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
	assert.NoError(t, Defaults().validate())
}
