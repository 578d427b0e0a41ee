package geo

import "errors"

// EarthRadiusMeters is the mean Earth radius used by every haversine call.
const EarthRadiusMeters = 6371000.0

var (
	// ErrEmptyPath is returned when a path-based query receives no points.
	ErrEmptyPath = errors.New("path has no points")

	// ErrInvalidPolyline is returned when an encoded polyline cannot be decoded.
	ErrInvalidPolyline = errors.New("invalid encoded polyline")
)

// Coordinate is a single GPS sample. Optional fields are nil when the source
// did not report them.
type Coordinate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Timestamp *int64   `json:"timestamp,omitempty"` // epoch milliseconds
	Elevation *float64 `json:"elevation,omitempty"` // meters
	Speed     *float64 `json:"speed,omitempty"`     // meters per second
}

// Path is an ordered sequence of coordinates in the order they were travelled.
type Path []Coordinate

// GeoUtils defines the geographic calculations used by route verification,
// territory detection and run tracking.
type GeoUtils interface {
	// Great-circle distance between two coordinates in meters
	PointToPoint(a, b Coordinate) float64

	// Total length of a path in meters
	PathDistance(path Path) float64

	// Distance from path[0] to every path[i] in meters
	CumulativeDistances(path Path) []float64

	// Resample a path into numPoints coordinates evenly spaced by distance
	ResamplePath(path Path, numPoints int) Path

	// Distance from a point to the segment v->w in meters
	PointToSegment(point, v, w Coordinate) float64

	// Minimum distance from a point to any segment of a path in meters
	PointToPath(point Coordinate, path Path) (float64, error)

	// Projection of a point onto the nearest segment of a path
	ClosestPointOnPath(point Coordinate, path Path) (Coordinate, error)

	// Decode a Google encoded polyline into a path
	DecodePolyline(encoded string) (Path, error)

	// Encode a path as a Google encoded polyline
	EncodePolyline(path Path) string
}

// NewCoordinate builds a coordinate without optional fields.
func NewCoordinate(latitude, longitude float64) Coordinate {
	return Coordinate{Latitude: latitude, Longitude: longitude}
}

// WithTimestamp returns a copy of c carrying the given epoch millisecond time.
func (c Coordinate) WithTimestamp(ms int64) Coordinate {
	c.Timestamp = &ms
	return c
}

// WithElevation returns a copy of c carrying the given elevation in meters.
func (c Coordinate) WithElevation(meters float64) Coordinate {
	c.Elevation = &meters
	return c
}

// First returns the first coordinate of the path and false when it is empty.
func (p Path) First() (Coordinate, bool) {
	if len(p) == 0 {
		return Coordinate{}, false
	}
	return p[0], true
}

// Last returns the last coordinate of the path and false when it is empty.
func (p Path) Last() (Coordinate, bool) {
	if len(p) == 0 {
		return Coordinate{}, false
	}
	return p[len(p)-1], true
}
