package verification

import "github.com/runterritory/server/internal/lib/geo"

// Default thresholds applied when a Config field is left at zero
const (
	DefaultProximityThresholdMeters = 50.0
	DefaultOffRouteThresholdMeters  = 30.0
	DefaultMaxSpeedKmh              = 40.0 // max reasonable average speed for running
)

// Config holds the verification thresholds. DisableAntiCheat replaces the
// process-wide development toggle and must be passed in explicitly.
type Config struct {
	ProximityThresholdMeters float64 `koanf:"proximity_threshold_meters" json:"proximity_threshold_meters"`
	OffRouteThresholdMeters  float64 `koanf:"off_route_threshold_meters" json:"off_route_threshold_meters"`
	MaxSpeedKmh              float64 `koanf:"max_speed_kmh" json:"max_speed_kmh"`
	DisableAntiCheat         bool    `koanf:"disable_anti_cheat" json:"disable_anti_cheat"`
}

// DefaultConfig returns the production thresholds with anti-cheat enabled
func DefaultConfig() Config {
	return Config{
		ProximityThresholdMeters: DefaultProximityThresholdMeters,
		OffRouteThresholdMeters:  DefaultOffRouteThresholdMeters,
		MaxSpeedKmh:              DefaultMaxSpeedKmh,
	}
}

// PaceResult is the outcome of the anti-cheat pace gate
type PaceResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Verifier checks a runner's position and pace against a route
type Verifier interface {
	// Is the runner close enough to the first point of the route to start it
	CheckProximityToStart(location geo.Coordinate, route geo.Path) bool

	// Is the runner within the off-route threshold of the route
	IsOnRoute(location geo.Coordinate, route geo.Path) bool

	// Raw distance from the runner to the route in meters
	DeviationFromRoute(location geo.Coordinate, route geo.Path) (float64, error)

	// Reject runs whose average speed is not plausible for a runner
	ValidateRunPace(durationSeconds, distanceMeters float64) PaceResult

	// Active thresholds
	Config() Config
}
