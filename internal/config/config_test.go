package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "debug", cfg.GinMode)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, MediaLocal, cfg.MediaDriver)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenExpiry)
	assert.Equal(t, 240*time.Hour, cfg.RefreshTokenExpiry)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, devAccessSecret, cfg.AccessTokenSecret)
	assert.Equal(t, devRefreshSecret, cfg.RefreshTokenSecret)
	assert.Empty(t, cfg.QueueRedisURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "15m")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("MAX_UPLOAD_SIZE", "1024")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreRedis, cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenExpiry)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, int64(1024), cfg.MaxUploadSize)
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("PORT=7000\nLOG_LEVEL=debug\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadExpiry(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REFRESH_TOKEN_EXPIRY", "ten days")

	_, err := Load()
	assert.ErrorContains(t, err, "REFRESH_TOKEN_EXPIRY")
}

func TestReleaseModeRequiresSecrets(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GIN_MODE", "release")

	_, err := Load()
	assert.ErrorContains(t, err, "ACCESS_TOKEN_SECRET")

	t.Setenv("ACCESS_TOKEN_SECRET", "same")
	t.Setenv("REFRESH_TOKEN_SECRET", "same")
	_, err = Load()
	assert.ErrorContains(t, err, "must differ")

	t.Setenv("REFRESH_TOKEN_SECRET", "other")
	_, err = Load()
	assert.NoError(t, err)
}

func TestValidateDrivers(t *testing.T) {
	base := Config{StoreDriver: StoreMemory, MediaDriver: MediaLocal, MediaLocalDir: "media"}

	cases := map[string]func(c *Config){
		"unknown store":        func(c *Config) { c.StoreDriver = "mongo" },
		"redis without url":    func(c *Config) { c.StoreDriver = StoreRedis },
		"postgres without dsn": func(c *Config) { c.StoreDriver = StorePostgres },
		"unknown media":        func(c *Config) { c.MediaDriver = "gcs" },
		"s3 without bucket":    func(c *Config) { c.MediaDriver = MediaS3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, base.Validate())
}

func TestParseExpiry(t *testing.T) {
	d, err := parseExpiry("10d")
	require.NoError(t, err)
	assert.Equal(t, 240*time.Hour, d)

	d, err = parseExpiry("90s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	for _, bad := range []string{"", "0d", "-1h", "xd"} {
		_, err := parseExpiry(bad)
		assert.Error(t, err, bad)
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := Config{CORSAllowedOrigins: " http://a.test , ,http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
}
