package verification

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/runterritory/server/internal/lib/geo"
)

// msToKmh converts meters per second to kilometers per hour
const msToKmh = 3.6

// verifier implements the Verifier interface
type verifier struct {
	geoUtils geo.GeoUtils
	config   Config
	logger   *zap.SugaredLogger
}

// NewVerifier creates a Verifier. Zero thresholds fall back to the defaults.
func NewVerifier(config Config, logger *zap.Logger) Verifier {
	if config.ProximityThresholdMeters <= 0 {
		config.ProximityThresholdMeters = DefaultProximityThresholdMeters
	}
	if config.OffRouteThresholdMeters <= 0 {
		config.OffRouteThresholdMeters = DefaultOffRouteThresholdMeters
	}
	if config.MaxSpeedKmh <= 0 {
		config.MaxSpeedKmh = DefaultMaxSpeedKmh
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &verifier{
		geoUtils: geo.NewGeoUtils(),
		config:   config,
		logger:   logger.Sugar().Named("verification"),
	}
}

// CheckProximityToStart reports whether location is within the proximity threshold of route[0]
func (v *verifier) CheckProximityToStart(location geo.Coordinate, route geo.Path) bool {
	start, ok := route.First()
	if !ok {
		return false
	}

	return v.geoUtils.PointToPoint(location, start) <= v.config.ProximityThresholdMeters
}

// IsOnRoute reports whether location is within the off-route threshold of route.
// Routes with fewer than 2 points cannot be evaluated and are trusted.
func (v *verifier) IsOnRoute(location geo.Coordinate, route geo.Path) bool {
	if len(route) < 2 {
		return true
	}

	distance, err := v.geoUtils.PointToPath(location, route)
	if err != nil {
		return true
	}

	return distance <= v.config.OffRouteThresholdMeters
}

// DeviationFromRoute returns the distance from location to route
func (v *verifier) DeviationFromRoute(location geo.Coordinate, route geo.Path) (float64, error) {
	distance, err := v.geoUtils.PointToPath(location, route)
	if err != nil {
		return 0, fmt.Errorf("deviation from route: %w", err)
	}
	return distance, nil
}

// ValidateRunPace rejects runs with a non-positive duration or an average speed above the limit
func (v *verifier) ValidateRunPace(durationSeconds, distanceMeters float64) PaceResult {
	if v.config.DisableAntiCheat {
		return PaceResult{Valid: true}
	}

	if durationSeconds <= 0 {
		return PaceResult{Valid: false, Reason: "Invalid duration"}
	}

	speedKmh := distanceMeters / durationSeconds * msToKmh
	if speedKmh > v.config.MaxSpeedKmh {
		v.logger.Infow("Run rejected by pace gate",
			"duration_seconds", durationSeconds,
			"distance_meters", distanceMeters,
			"speed_kmh", speedKmh)

		return PaceResult{
			Valid:  false,
			Reason: fmt.Sprintf("Speed too high (%.1f km/h). Max allowed: %g km/h", speedKmh, v.config.MaxSpeedKmh),
		}
	}

	return PaceResult{Valid: true}
}

// Config returns the thresholds in effect
func (v *verifier) Config() Config {
	return v.config
}
