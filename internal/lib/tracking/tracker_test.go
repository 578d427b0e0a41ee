package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/verification"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T) (*Tracker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)}
	tracker := NewTracker(verification.NewVerifier(verification.DefaultConfig(), zap.NewNop()), zap.NewNop())
	tracker.now = clock.Now
	return tracker, clock
}

// 1km route heading east along the equator
var eastRoute = geo.Path{geo.NewCoordinate(0, 0), geo.NewCoordinate(0, 0.009)}

func TestTracker_Lifecycle(t *testing.T) {
	tracker, clock := newTestTracker(t)
	assert.Equal(t, Idle, tracker.State())

	_, err := tracker.Add(geo.NewCoordinate(0, 0))
	assert.ErrorIs(t, err, ErrNotTracking)

	require.NoError(t, tracker.Start(geo.NewCoordinate(0, 0), eastRoute))
	assert.Equal(t, Tracking, tracker.State())
	assert.ErrorIs(t, tracker.Start(geo.NewCoordinate(0, 0), eastRoute), ErrAlreadyTracking)

	for i := 1; i <= 9; i++ {
		clock.Advance(36 * time.Second)
		update, err := tracker.Add(geo.NewCoordinate(0, float64(i)*0.001))
		require.NoError(t, err)
		assert.True(t, update.OnRoute)
	}

	assert.InDelta(t, 1000.75, tracker.Distance(), 0.1)
	assert.InDelta(t, geo.NewGeoUtils().PathDistance(tracker.Path()), tracker.Distance(), 1e-9)

	current, ok := tracker.CurrentLocation()
	require.True(t, ok)
	assert.Equal(t, geo.NewCoordinate(0, float64(9)*0.001), current)

	summary, err := tracker.Stop()
	require.NoError(t, err)
	assert.Equal(t, Stopped, tracker.State())
	assert.Len(t, summary.Path, 10)
	assert.InDelta(t, 324, summary.DurationSeconds, 1e-9)
	assert.True(t, summary.Pace.Valid, "1km in 5:24 is a plausible pace")
	assert.Equal(t, 0, summary.OffRouteSamples)

	// Stopping keeps the path for the caller
	assert.Len(t, tracker.Path(), 10)
	_, err = tracker.Stop()
	assert.ErrorIs(t, err, ErrNotTracking)

	tracker.Reset()
	assert.Equal(t, Idle, tracker.State())
	assert.Empty(t, tracker.Path())
	assert.Equal(t, 0.0, tracker.Distance())
	_, ok = tracker.CurrentLocation()
	assert.False(t, ok)
}

func TestTracker_RequiresRouteStart(t *testing.T) {
	tracker, _ := newTestTracker(t)

	err := tracker.Start(geo.NewCoordinate(0.01, 0), eastRoute)
	assert.ErrorIs(t, err, ErrNotAtStart)
	assert.Equal(t, Idle, tracker.State())

	// Free runs have no start constraint
	require.NoError(t, tracker.Start(geo.NewCoordinate(0.01, 0), nil))
}

func TestTracker_OffRoute(t *testing.T) {
	tracker, _ := newTestTracker(t)
	require.NoError(t, tracker.Start(geo.NewCoordinate(0, 0), eastRoute))

	update, err := tracker.Add(geo.NewCoordinate(0.001, 0.002))
	require.NoError(t, err)
	assert.False(t, update.OnRoute, "~111m off the route")
	assert.False(t, tracker.OnRoute())
	require.NotNil(t, update.NearestOnRoute)
	assert.InDelta(t, 0, update.NearestOnRoute.Latitude, 1e-9)
	assert.InDelta(t, 0.002, update.NearestOnRoute.Longitude, 1e-9)

	update, err = tracker.Add(geo.NewCoordinate(0, 0.003))
	require.NoError(t, err)
	assert.True(t, update.OnRoute)
	assert.Nil(t, update.NearestOnRoute)
	assert.True(t, tracker.OnRoute())

	assert.Equal(t, 1, tracker.Summary().OffRouteSamples)
}

func TestTracker_DurationFromTimestamps(t *testing.T) {
	tracker, clock := newTestTracker(t)
	require.NoError(t, tracker.Start(geo.NewCoordinate(0, 0).WithTimestamp(1_000), nil))

	// The tracker clock barely moves while the samples span 330s
	clock.Advance(time.Second)
	_, err := tracker.Add(geo.NewCoordinate(0, 0.0045).WithTimestamp(166_000))
	require.NoError(t, err)
	_, err = tracker.Add(geo.NewCoordinate(0, 0.009).WithTimestamp(331_000))
	require.NoError(t, err)

	summary, err := tracker.Stop()
	require.NoError(t, err)
	assert.InDelta(t, 330, summary.DurationSeconds, 1e-9)
	assert.True(t, summary.Pace.Valid)
}

func TestTracker_DurationFallsBackToClock(t *testing.T) {
	tracker, clock := newTestTracker(t)
	require.NoError(t, tracker.Start(geo.NewCoordinate(0, 0).WithTimestamp(5_000), nil))

	clock.Advance(90 * time.Second)
	_, err := tracker.Add(geo.NewCoordinate(0, 0.001))
	require.NoError(t, err)

	summary, err := tracker.Stop()
	require.NoError(t, err)
	assert.InDelta(t, 90, summary.DurationSeconds, 1e-9, "last sample has no timestamp")
}

func TestTracker_RejectsImplausiblePace(t *testing.T) {
	tracker, clock := newTestTracker(t)
	require.NoError(t, tracker.Start(geo.NewCoordinate(0, 0), nil))

	clock.Advance(30 * time.Second)
	_, err := tracker.Add(geo.NewCoordinate(0, 0.009))
	require.NoError(t, err)

	summary, err := tracker.Stop()
	require.NoError(t, err)
	assert.False(t, summary.Pace.Valid, "1km in 30s is 120 km/h")
	assert.Contains(t, summary.Pace.Reason, "Speed too high")
}

func TestTracker_Consume(t *testing.T) {
	tracker, _ := newTestTracker(t)
	require.NoError(t, tracker.Start(geo.NewCoordinate(0, 0), eastRoute))

	locations := make(chan geo.Coordinate)
	go func() {
		defer close(locations)
		for i := 1; i <= 5; i++ {
			locations <- geo.NewCoordinate(0, float64(i)*0.001)
		}
	}()

	var updates []Update
	require.NoError(t, tracker.Consume(context.Background(), locations, func(u Update) {
		updates = append(updates, u)
	}))
	assert.Len(t, tracker.Path(), 6)
	require.Len(t, updates, 5)
	assert.InDelta(t, tracker.Distance(), updates[4].DistanceMeters, 1e-9)
	for _, u := range updates {
		assert.True(t, u.OnRoute)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tracker.Consume(ctx, make(chan geo.Coordinate)), context.Canceled)
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tracker, _ := newTestTracker(t)
	require.NoError(t, tracker.Start(geo.NewCoordinate(0, 0), nil))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := tracker.Add(geo.NewCoordinate(float64(w)*0.0001, float64(i)*0.0001))
				assert.NoError(t, err)
				_ = tracker.Distance()
				_ = tracker.Summary()
			}
		}(w)
	}
	wg.Wait()

	path := tracker.Path()
	assert.Len(t, path, 201)
	assert.InDelta(t, geo.NewGeoUtils().PathDistance(path), tracker.Distance(), 1e-6)
}
