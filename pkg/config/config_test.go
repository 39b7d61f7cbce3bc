package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lintang/timemap/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, ":5000", cfg.Server.ListenAddr)
	assert.Equal(t, "Westport", cfg.Map.DefaultOrigin)
	assert.Equal(t, int64(8400), cfg.Map.HorizonSeconds)
	assert.Equal(t, int64(7200), cfg.Map.RingSeconds)
	assert.Equal(t, 1000.0, cfg.Augmentation.RadiusKM)
	assert.Equal(t, int64(1800), cfg.Augmentation.AdHocSeconds)
	assert.Equal(t, "2022-09-08T18:00:00+0200", cfg.Augmentation.Departure)
	assert.Equal(t, 15*time.Second, cfg.Transit.Timeout)
	assert.Equal(t, "timemapDB", cfg.Cache.Path)
	assert.Equal(t, 4, cfg.WarmCache.Workers)
}

func TestParse(t *testing.T) {
	t.Run("overrides and defaults", func(t *testing.T) {
		cfg, err := config.Parse([]byte(`
server:
  listen_addr: ":8080"
routes:
  files: [routes/europe.json, routes/ferries.yaml]
map:
  default_origin: Paris
augmentation:
  radius_km: 750
transit:
  timeout: 3s
`))
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.ListenAddr)
		assert.Equal(t, []string{"routes/europe.json", "routes/ferries.yaml"}, cfg.Routes.Files)
		assert.Equal(t, "Paris", cfg.Map.DefaultOrigin)
		assert.Equal(t, 750.0, cfg.Augmentation.RadiusKM)
		assert.Equal(t, 3*time.Second, cfg.Transit.Timeout)
		assert.Equal(t, int64(8400), cfg.Map.HorizonSeconds)
		assert.Equal(t, "timemapDB", cfg.Cache.Path)
	})

	t.Run("empty cache path selects memory", func(t *testing.T) {
		cfg, err := config.Parse([]byte("cache:\n  path: \"\"\n"))
		require.NoError(t, err)
		assert.Equal(t, "", cfg.Cache.Path)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := config.Parse([]byte("server: [unclosed"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, config.DefaultConfig(), cfg)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "timemap.yaml")
		require.NoError(t, os.WriteFile(path, []byte("map:\n  ring_seconds: 3600\n"), 0o644))
		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, int64(3600), cfg.Map.RingSeconds)
	})
}
