// Package simulate replays a route as a mock live location stream so runs can
// be exercised without a device.
package simulate

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/runterritory/server/internal/lib/geo"
)

var (
	ErrRouteTooShort = errors.New("simulated route needs at least 2 points")
	ErrInvalidPace   = errors.New("pace must be positive")
	ErrRunning       = errors.New("simulator is already running")
)

// Config controls playback of a simulated run
type Config struct {
	PaceMinPerKm float64       `koanf:"pace_min_per_km" json:"pace_min_per_km"`
	Interval     time.Duration `koanf:"interval" json:"interval"`
	Laps         int           `koanf:"laps" json:"laps"` // 0 repeats until stopped
}

// DefaultConfig returns a 6 min/km pace with one update per second
func DefaultConfig() Config {
	return Config{
		PaceMinPerKm: 6,
		Interval:     time.Second,
		Laps:         1,
	}
}

// Simulator emits positions along a route at a constant pace. It owns the
// cancellation of its playback loop; Stop ends the stream.
type Simulator struct {
	geoUtils geo.GeoUtils
	route    geo.Path
	config   Config
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulator creates a simulator for route
func NewSimulator(route geo.Path, config Config, logger *zap.Logger) (*Simulator, error) {
	if len(route) < 2 {
		return nil, ErrRouteTooShort
	}
	if config.PaceMinPerKm <= 0 {
		return nil, ErrInvalidPace
	}
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Simulator{
		geoUtils: geo.NewGeoUtils(),
		route:    geo.Clone(route),
		config:   config,
		logger:   logger.Sugar().Named("simulate"),
		now:      time.Now,
	}, nil
}

// SpeedMetersPerSecond is the constant speed implied by the configured pace
func (s *Simulator) SpeedMetersPerSecond() float64 {
	return 1000 / (s.config.PaceMinPerKm * 60)
}

// Lap returns the positions of one lap, one per interval, evenly spaced along the route
func (s *Simulator) Lap() geo.Path {
	total := s.geoUtils.PathDistance(s.route)
	lapSeconds := total / s.SpeedMetersPerSecond()

	numPoints := int(math.Ceil(lapSeconds/s.config.Interval.Seconds())) + 1
	if numPoints < 2 {
		numPoints = 2
	}

	return s.geoUtils.ResamplePath(s.route, numPoints)
}

// Start begins playback and returns the position stream. The channel closes
// when all laps were emitted, when ctx is done or when Stop is called.
func (s *Simulator) Start(ctx context.Context) (<-chan geo.Coordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	positions := make(chan geo.Coordinate)
	lap := s.Lap()

	s.logger.Infow("Starting location simulation",
		"route_points", len(s.route),
		"lap_points", len(lap),
		"pace_min_per_km", s.config.PaceMinPerKm,
		"interval", s.config.Interval)

	go s.run(ctx, cancel, lap, positions, s.done)

	return positions, nil
}

// Stop cancels playback and waits for the stream to close
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Simulator) run(ctx context.Context, cancel context.CancelFunc, lap geo.Path, positions chan<- geo.Coordinate, done chan struct{}) {
	defer func() {
		cancel()
		close(positions)
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	speed := s.SpeedMetersPerSecond()
	emitted := 0

	for laps := 0; s.config.Laps == 0 || laps < s.config.Laps; laps++ {
		for i, position := range lap {
			// Later laps start where the previous one ended
			if laps > 0 && i == 0 {
				continue
			}

			position = position.WithTimestamp(s.now().UnixMilli())
			position.Speed = &speed

			select {
			case <-ctx.Done():
				s.logger.Infow("Location simulation stopped", "emitted", emitted)
				return
			case positions <- position:
				emitted++
			}

			select {
			case <-ctx.Done():
				s.logger.Infow("Location simulation stopped", "emitted", emitted)
				return
			case <-ticker.C:
			}
		}
	}

	s.logger.Infow("Location simulation finished", "emitted", emitted)
}

// LoopRoute builds a circular route of the given circumference that starts and
// ends at start, heading east first. The start is the southernmost point.
func LoopRoute(start geo.Coordinate, circumferenceMeters float64, points int) geo.Path {
	if points < 3 {
		points = 3
	}

	radius := circumferenceMeters / (2 * math.Pi)
	angular := radius / geo.EarthRadiusMeters

	centerLat := start.Latitude*math.Pi/180 + angular
	centerLng := start.Longitude * math.Pi / 180

	route := make(geo.Path, points)
	route[0] = geo.NewCoordinate(start.Latitude, start.Longitude)
	for i := 1; i < points-1; i++ {
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(points-1)
		lat := centerLat + angular*math.Sin(angle)
		lng := centerLng + angular*math.Cos(angle)/math.Cos(centerLat)
		route[i] = geo.NewCoordinate(lat*180/math.Pi, lng*180/math.Pi)
	}
	route[points-1] = route[0]

	return route
}
