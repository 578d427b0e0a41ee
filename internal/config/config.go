package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/runterritory/server/internal/lib/simulate"
	"github.com/runterritory/server/internal/lib/territory"
	"github.com/runterritory/server/internal/lib/verification"
	"github.com/runterritory/server/internal/logging"
)

// EnvPrefix is the prefix of environment overrides. Nested keys are separated
// by a double underscore, e.g. RUNTERRITORY__VERIFICATION__DISABLE_ANTI_CHEAT=true.
const EnvPrefix = "RUNTERRITORY__"

// Config represents the complete server configuration
type Config struct {
	Server       ServerConfig        `koanf:"server"`
	Verification verification.Config `koanf:"verification"`
	Territory    territory.Config    `koanf:"territory"`
	Simulator    simulate.Config     `koanf:"simulator"`
	Cache        CacheConfig         `koanf:"cache"`
	Logging      logging.Config      `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address         string        `koanf:"address"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Request limits; neither may be exceeded by one HTTP call
	MaxBodyBytes      int64 `koanf:"max_body_bytes"`
	MaxResamplePoints int   `koanf:"max_resample_points"`
}

// CacheConfig holds captured territory storage settings
type CacheConfig struct {
	TerritoryTTL    time.Duration `koanf:"territory_ttl"`
	RunTTL          time.Duration `koanf:"run_ttl"` // runs and routes
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,

			MaxBodyBytes:      1 << 20,
			MaxResamplePoints: 10000,
		},
		Verification: verification.DefaultConfig(),
		Territory:    territory.DefaultConfig(),
		Simulator:    simulate.DefaultConfig(),
		Cache: CacheConfig{
			TerritoryTTL:    24 * time.Hour,
			RunTTL:          7 * 24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then RUNTERRITORY__ environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// envKey maps RUNTERRITORY__SERVER__ADDRESS to server.address
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// defaults flattens DefaultConfig into koanf keys
func defaults() map[string]interface{} {
	d := DefaultConfig()
	return map[string]interface{}{
		"server.address":          d.Server.Address,
		"server.read_timeout":     d.Server.ReadTimeout,
		"server.write_timeout":    d.Server.WriteTimeout,
		"server.shutdown_timeout": d.Server.ShutdownTimeout,

		"server.max_body_bytes":      d.Server.MaxBodyBytes,
		"server.max_resample_points": d.Server.MaxResamplePoints,

		"verification.proximity_threshold_meters": d.Verification.ProximityThresholdMeters,
		"verification.off_route_threshold_meters": d.Verification.OffRouteThresholdMeters,
		"verification.max_speed_kmh":              d.Verification.MaxSpeedKmh,
		"verification.disable_anti_cheat":         d.Verification.DisableAntiCheat,

		"territory.closure_threshold_meters": d.Territory.ClosureThresholdMeters,
		"territory.min_route_points":         d.Territory.MinRoutePoints,

		"simulator.pace_min_per_km": d.Simulator.PaceMinPerKm,
		"simulator.interval":        d.Simulator.Interval,
		"simulator.laps":            d.Simulator.Laps,

		"cache.territory_ttl":    d.Cache.TerritoryTTL,
		"cache.run_ttl":          d.Cache.RunTTL,
		"cache.cleanup_interval": d.Cache.CleanupInterval,

		"logging.level":  d.Logging.Level,
		"logging.format": d.Logging.Format,
	}
}
