package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/umq7573/streaky-shooter/internal/cache"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, cache.DefaultMaxSizeMB, cfg.Cache.MaxSizeMB)
	assert.Equal(t, 24*time.Hour, cfg.Cache.CurrentSeasonTTL.Std())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 600*time.Millisecond, cfg.API.Delay.Std())
}

func TestLoad(t *testing.T) {
	t.Run("ExplicitMissingFileErrors", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
		require.Error(t, err, "an explicitly named missing file is an error")
		assert.Nil(t, cfg)
	})

	t.Run("Overlay", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
cache:
  enabled: true
  current_season_ttl: 1h
  max_size_mb: 5
  compression: true
logging:
  level: debug
`), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, cfg.Cache.CurrentSeasonTTL.Std())
		assert.Equal(t, 5, cfg.Cache.MaxSizeMB)
		assert.True(t, cfg.Cache.Compression)
		assert.Equal(t, "debug", cfg.Logging.Level)
		// Keys absent from the file keep their defaults.
		assert.Equal(t, 30*24*time.Hour, cfg.Cache.CompletedSeasonTTL.Std())
		assert.Equal(t, 3, cfg.API.MaxRetries)
	})

	t.Run("BadDuration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache:\n  default_ttl: soon\n"), 0600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv(EnvCacheEnabled, "false")
		t.Setenv(EnvCacheDir, "/tmp/streaky-test-cache")
		t.Setenv(EnvCacheMaxSizeMB, "7")

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache:\n  max_size_mb: 50\n"), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.False(t, cfg.Cache.Enabled)
		assert.Equal(t, "/tmp/streaky-test-cache", cfg.Cache.Directory)
		assert.Equal(t, 7, cfg.Cache.MaxSizeMB, "environment beats the file")
	})
}

func TestDurationYAML(t *testing.T) {
	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`"90m"`), &d))
	assert.Equal(t, 90*time.Minute, d.Std())

	out, err := yaml.Marshal(Duration(24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "24h0m0s\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte(`"later"`), &d))
}

func TestManagerConfig(t *testing.T) {
	cc := CacheConfig{
		Enabled:            true,
		Directory:          "/tmp/c",
		DefaultTTL:         Duration(time.Hour),
		CurrentSeasonTTL:   Duration(time.Minute),
		CompletedSeasonTTL: Duration(time.Second),
		MaxSizeMB:          2,
		Compression:        true,
	}
	mc := cc.ManagerConfig()
	assert.True(t, mc.Enabled)
	assert.Equal(t, int64(2<<20), mc.MaxSizeBytes)
	assert.Equal(t, time.Hour, mc.TTL.Default)
	assert.Equal(t, time.Minute, mc.TTL.Current)
	assert.Equal(t, time.Second, mc.TTL.Completed)
	assert.True(t, mc.Compression)
	assert.Equal(t, cache.AdoptOrphans, mc.Orphans)
}
