package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runterritory.yaml")
	yaml := `
server:
  address: ":9090"
  read_timeout: 3s
verification:
  max_speed_kmh: 25
territory:
  min_route_points: 20
simulator:
  pace_min_per_km: 4.5
  interval: 500ms
cache:
  territory_ttl: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, 25.0, cfg.Verification.MaxSpeedKmh)
	assert.Equal(t, 50.0, cfg.Verification.ProximityThresholdMeters)
	assert.Equal(t, 20, cfg.Territory.MinRoutePoints)
	assert.Equal(t, 4.5, cfg.Simulator.PaceMinPerKm)
	assert.Equal(t, 500*time.Millisecond, cfg.Simulator.Interval)
	assert.Equal(t, time.Hour, cfg.Cache.TerritoryTTL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("RUNTERRITORY__VERIFICATION__DISABLE_ANTI_CHEAT", "true")
	t.Setenv("RUNTERRITORY__SIMULATOR__PACE_MIN_PER_KM", "5")
	t.Setenv("RUNTERRITORY__SERVER__ADDRESS", "127.0.0.1:7000")
	t.Setenv("RUNTERRITORY__SERVER__MAX_RESAMPLE_POINTS", "500")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Verification.DisableAntiCheat)
	assert.Equal(t, 5.0, cfg.Simulator.PaceMinPerKm)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Address)
	assert.Equal(t, 500, cfg.Server.MaxResamplePoints)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "verification.max_speed_kmh", envKey("RUNTERRITORY__VERIFICATION__MAX_SPEED_KMH"))
	assert.Equal(t, "server.address", envKey("RUNTERRITORY__SERVER__ADDRESS"))
}
