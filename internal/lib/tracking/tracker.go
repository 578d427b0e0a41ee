package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/verification"
)

var (
	ErrAlreadyTracking = errors.New("run is already being tracked")
	ErrNotTracking     = errors.New("run is not being tracked")
	ErrNotAtStart      = errors.New("runner is too far from the route start")
)

// State of a tracked run
type State string

const (
	Idle     State = "idle"
	Tracking State = "tracking"
	Stopped  State = "stopped"
)

// Update describes the run after a new location was added
type Update struct {
	Location       geo.Coordinate `json:"location"`
	DistanceMeters float64        `json:"distance_meters"`
	OnRoute        bool           `json:"on_route"`

	// Closest point of the route, set only while off route
	NearestOnRoute *geo.Coordinate `json:"nearest_on_route,omitempty"`
}

// Summary is the final view of a stopped run
type Summary struct {
	Path            geo.Path                `json:"path"`
	DistanceMeters  float64                 `json:"distance_meters"`
	DurationSeconds float64                 `json:"duration_seconds"`
	OffRouteSamples int                     `json:"off_route_samples"`
	Pace            verification.PaceResult `json:"pace"`
}

// Tracker accumulates the live path of one run. It is safe for concurrent use:
// the location stream may call Add while readers query the current state.
type Tracker struct {
	geoUtils geo.GeoUtils
	verifier verification.Verifier
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu              sync.RWMutex
	state           State
	route           geo.Path
	path            geo.Path
	distance        float64
	startedAt       time.Time
	stoppedAt       time.Time
	onRoute         bool
	offRouteSamples int
}

// NewTracker creates an idle tracker
func NewTracker(verifier verification.Verifier, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		geoUtils: geo.NewGeoUtils(),
		verifier: verifier,
		logger:   logger.Sugar().Named("tracking"),
		now:      time.Now,
		state:    Idle,
		onRoute:  true,
	}
}

// Start begins tracking from the initial location. When route is non-empty the
// runner must be near its first point.
func (t *Tracker) Start(initial geo.Coordinate, route geo.Path) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Tracking {
		return ErrAlreadyTracking
	}

	if len(route) > 0 && !t.verifier.CheckProximityToStart(initial, route) {
		return ErrNotAtStart
	}

	t.state = Tracking
	t.route = geo.Clone(route)
	t.path = geo.Path{initial}
	t.distance = 0
	t.startedAt = t.now()
	t.stoppedAt = time.Time{}
	t.onRoute = t.verifier.IsOnRoute(initial, t.route)
	t.offRouteSamples = 0

	t.logger.Infow("Run tracking started",
		"route_points", len(route),
		"lat", initial.Latitude,
		"lng", initial.Longitude)

	return nil
}

// Add appends a location from the live stream and updates the running distance
func (t *Tracker) Add(location geo.Coordinate) (Update, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Tracking {
		return Update{}, ErrNotTracking
	}

	last := t.path[len(t.path)-1]
	t.distance += t.geoUtils.PointToPoint(last, location)
	t.path = append(t.path, location)

	update := Update{Location: location, OnRoute: t.verifier.IsOnRoute(location, t.route)}
	if !update.OnRoute {
		t.offRouteSamples++
		if nearest, err := t.geoUtils.ClosestPointOnPath(location, t.route); err == nil {
			update.NearestOnRoute = &nearest
		}
		if t.onRoute {
			fields := []any{
				"lat", location.Latitude,
				"lng", location.Longitude,
				"distance_meters", t.distance,
			}
			if update.NearestOnRoute != nil {
				fields = append(fields,
					"route_lat", update.NearestOnRoute.Latitude,
					"route_lng", update.NearestOnRoute.Longitude)
			}
			t.logger.Warnw("Runner left the route", fields...)
		}
	}
	t.onRoute = update.OnRoute
	update.DistanceMeters = t.distance

	return update, nil
}

// Consume adds every location received on the stream until it closes or ctx is
// done. Each observer sees the update of every accepted location.
func (t *Tracker) Consume(ctx context.Context, locations <-chan geo.Coordinate, observers ...func(Update)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case location, ok := <-locations:
			if !ok {
				return nil
			}
			update, err := t.Add(location)
			if err != nil {
				return err
			}
			for _, observe := range observers {
				observe(update)
			}
		}
	}
}

// Stop ends tracking. The path is kept so the caller can read the final summary.
func (t *Tracker) Stop() (Summary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Tracking {
		return Summary{}, ErrNotTracking
	}

	t.state = Stopped
	t.stoppedAt = t.now()

	summary := t.summaryLocked()
	t.logger.Infow("Run tracking stopped",
		"points", len(t.path),
		"distance_meters", summary.DistanceMeters,
		"duration_seconds", summary.DurationSeconds,
		"pace_valid", summary.Pace.Valid)

	return summary, nil
}

// Reset discards the run and returns the tracker to idle
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = Idle
	t.route = nil
	t.path = nil
	t.distance = 0
	t.startedAt = time.Time{}
	t.stoppedAt = time.Time{}
	t.onRoute = true
	t.offRouteSamples = 0
}

// State returns the tracker state
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Path returns a copy of the collected path
func (t *Tracker) Path() geo.Path {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return geo.Clone(t.path)
}

// Distance returns the distance covered so far in meters
func (t *Tracker) Distance() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.distance
}

// CurrentLocation returns the most recent location, false when nothing was collected
func (t *Tracker) CurrentLocation() (geo.Coordinate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.path.Last()
}

// OnRoute reports whether the latest location was on the selected route
func (t *Tracker) OnRoute() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onRoute
}

// Summary returns the current summary; for a running tracker the duration is measured up to now
func (t *Tracker) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.summaryLocked()
}

func (t *Tracker) summaryLocked() Summary {
	duration := t.durationLocked()
	return Summary{
		Path:            geo.Clone(t.path),
		DistanceMeters:  t.distance,
		DurationSeconds: duration,
		OffRouteSamples: t.offRouteSamples,
		Pace:            t.verifier.ValidateRunPace(duration, t.distance),
	}
}

// durationLocked measures the run from the first and last sample timestamps.
// Samples without timestamps fall back to the tracker clock.
func (t *Tracker) durationLocked() float64 {
	if len(t.path) > 1 {
		first, last := t.path[0].Timestamp, t.path[len(t.path)-1].Timestamp
		if first != nil && last != nil && *last >= *first {
			return float64(*last-*first) / 1000
		}
	}

	end := t.stoppedAt
	if end.IsZero() {
		end = t.now()
	}

	var duration float64
	if !t.startedAt.IsZero() {
		duration = end.Sub(t.startedAt).Seconds()
	}
	return duration
}
