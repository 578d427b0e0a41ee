package territory

import "github.com/runterritory/server/internal/lib/geo"

// Default loop detection parameters
const (
	DefaultClosureThresholdMeters = 50.0 // max start/end gap for a closed loop
	DefaultMinRoutePoints         = 10   // shorter routes never form a territory
)

// Status represents the ownership state of a territory
type Status string

const (
	Owned     Status = "owned"
	Contested Status = "contested"
	Free      Status = "free"
)

// AreaStatus tells whether Area.SquareMeters holds a real measurement
type AreaStatus string

const (
	// AreaUnimplemented marks an area that was not computed; SquareMeters is always 0
	AreaUnimplemented AreaStatus = "unimplemented"
)

// Area is a tagged polygon area. Geodesic area is not computed yet, so every
// territory carries AreaUnimplemented.
type Area struct {
	SquareMeters float64    `json:"square_meters"`
	Status       AreaStatus `json:"status"`
}

// Territory is a closed polygon captured from a run that formed a loop
type Territory struct {
	ID          string         `json:"id"`
	Coordinates geo.Path       `json:"coordinates"` // closed ring, first == last
	Center      geo.Coordinate `json:"center"`
	Status      Status         `json:"status"`
	Area        Area           `json:"area"`
	CreatedAt   int64          `json:"created_at"` // epoch milliseconds
}

// Config holds loop detection parameters
type Config struct {
	ClosureThresholdMeters float64 `koanf:"closure_threshold_meters" json:"closure_threshold_meters"`
	MinRoutePoints         int     `koanf:"min_route_points" json:"min_route_points"`
}

// DefaultConfig returns the default loop detection parameters
func DefaultConfig() Config {
	return Config{
		ClosureThresholdMeters: DefaultClosureThresholdMeters,
		MinRoutePoints:         DefaultMinRoutePoints,
	}
}

// Detector turns run routes into territories
type Detector interface {
	// Haversine distance between two coordinates in meters
	GetDistance(a, b geo.Coordinate) float64

	// Is the route long enough and does it end near where it started
	IsLoopClosed(route geo.Path) bool

	// Build a territory from a closed route, nil when the route is not a loop
	DetectFromRoute(route geo.Path) *Territory
}
