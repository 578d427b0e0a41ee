package territory

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/runterritory/server/internal/lib/geo"
)

// Option customizes a detector
type Option func(*detector)

// WithClock overrides the time source used for CreatedAt
func WithClock(now func() time.Time) Option {
	return func(d *detector) { d.now = now }
}

// WithIDGenerator overrides the territory id source
func WithIDGenerator(newID func() string) Option {
	return func(d *detector) { d.newID = newID }
}

// detector implements the Detector interface
type detector struct {
	geoUtils geo.GeoUtils
	config   Config
	logger   *zap.SugaredLogger
	now      func() time.Time
	newID    func() string
}

// NewDetector creates a territory Detector. Zero config fields fall back to the defaults.
func NewDetector(config Config, logger *zap.Logger, opts ...Option) Detector {
	if config.ClosureThresholdMeters <= 0 {
		config.ClosureThresholdMeters = DefaultClosureThresholdMeters
	}
	if config.MinRoutePoints <= 0 {
		config.MinRoutePoints = DefaultMinRoutePoints
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &detector{
		geoUtils: geo.NewGeoUtils(),
		config:   config,
		logger:   logger.Sugar().Named("territory"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetDistance calculates the haversine distance between two coordinates
func (d *detector) GetDistance(a, b geo.Coordinate) float64 {
	return d.geoUtils.PointToPoint(a, b)
}

// IsLoopClosed checks that the route has enough points and ends within the closure threshold of its start
func (d *detector) IsLoopClosed(route geo.Path) bool {
	if len(route) < d.config.MinRoutePoints {
		return false
	}

	start := route[0]
	end := route[len(route)-1]

	return d.GetDistance(start, end) <= d.config.ClosureThresholdMeters
}

// DetectFromRoute returns a territory for a closed route, or nil when no loop was formed.
// The returned ring always ends with its first coordinate.
func (d *detector) DetectFromRoute(route geo.Path) *Territory {
	if !d.IsLoopClosed(route) {
		return nil
	}

	ring := geo.Clone(route)
	if d.GetDistance(ring[0], ring[len(ring)-1]) > 0 {
		ring = append(ring, ring[0])
	}

	createdAt := d.now().UnixMilli()
	center := centroid(ring).WithTimestamp(createdAt)

	t := &Territory{
		ID:          d.newID(),
		Coordinates: ring,
		Center:      center,
		Status:      Owned,
		Area:        area(ring),
		CreatedAt:   createdAt,
	}

	d.logger.Infow("Territory detected",
		"territory_id", t.ID,
		"ring_points", len(ring),
		"center_lat", center.Latitude,
		"center_lng", center.Longitude)

	return t
}

// centroid is the arithmetic mean of latitudes and longitudes, a planar approximation for small loops
func centroid(ring geo.Path) geo.Coordinate {
	var latSum, lngSum float64
	for _, c := range ring {
		latSum += c.Latitude
		lngSum += c.Longitude
	}
	n := float64(len(ring))
	return geo.NewCoordinate(latSum/n, lngSum/n)
}

// area does not measure the polygon; it tags the result so callers never mistake it for a real value
func area(geo.Path) Area {
	return Area{SquareMeters: 0, Status: AreaUnimplemented}
}
