package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/territory"
)

type fakeClock struct {
	current time.Time
}

func (f *fakeClock) now() time.Time { return f.current }

func (f *fakeClock) advance(d time.Duration) { f.current = f.current.Add(d) }

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := NewCache(zap.NewNop())
	c.now = clock.now
	return c, clock
}

func sampleTerritory(id string, createdAt int64) *territory.Territory {
	ring := geo.Path{
		geo.NewCoordinate(-30.03, -51.22),
		geo.NewCoordinate(-30.03, -51.21),
		geo.NewCoordinate(-30.02, -51.21),
		geo.NewCoordinate(-30.03, -51.22),
	}
	return &territory.Territory{
		ID:          id,
		Coordinates: ring,
		Center:      geo.NewCoordinate(-30.0275, -51.215).WithTimestamp(createdAt),
		Status:      territory.Owned,
		Area:        territory.Area{Status: territory.AreaUnimplemented},
		CreatedAt:   createdAt,
	}
}

func TestCache_SetGet(t *testing.T) {
	c, clock := newTestCache()

	require.NoError(t, c.Set("route:1", map[string]float64{"distance": 5000}, time.Minute, "test"))

	var got map[string]float64
	found, err := c.Get("route:1", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 5000.0, got["distance"])

	clock.advance(2 * time.Minute)
	found, err = c.Get("route:1", &got)
	require.NoError(t, err)
	assert.False(t, found, "expired entry must not be returned")

	found, err = c.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_SetUnmarshalable(t *testing.T) {
	c, _ := newTestCache()
	err := c.Set("bad", make(chan int), time.Minute, "test")
	assert.Error(t, err)
}

func TestCache_DeleteAndKeys(t *testing.T) {
	c, _ := newTestCache()
	require.NoError(t, c.Set("territory:b", 1, time.Minute, "test"))
	require.NoError(t, c.Set("territory:a", 2, time.Minute, "test"))
	require.NoError(t, c.Set("route:x", 3, time.Minute, "test"))

	assert.Equal(t, []string{"territory:a", "territory:b"}, c.Keys("territory:"))
	assert.Len(t, c.Keys(""), 3)

	c.Delete("territory:a")
	assert.Equal(t, []string{"territory:b"}, c.Keys("territory:"))
}

func TestCache_StatsAndCleanup(t *testing.T) {
	c, clock := newTestCache()
	start := clock.current

	require.NoError(t, c.Set("short", 1, time.Second, "test"))
	clock.advance(time.Second)
	require.NoError(t, c.Set("long", 2, time.Hour, "test"))
	clock.advance(time.Minute)

	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)
	assert.Equal(t, 1, stats.StaleEntries)
	assert.Equal(t, start, stats.OldestEntry)
	assert.Equal(t, start.Add(time.Second), stats.NewestEntry)

	assert.Equal(t, 1, c.CleanupStale())
	assert.Equal(t, []string{"long"}, c.Keys(""))
	assert.Equal(t, 0, c.CleanupStale())
}

func TestCache_StartPeriodicCleanup(t *testing.T) {
	c := NewCache(nil)
	require.NoError(t, c.Set("expired", 1, -time.Second, "test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartPeriodicCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return c.Stats().TotalEntries == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCache_Territories(t *testing.T) {
	c, clock := newTestCache()

	second := sampleTerritory("b7d1", 1772355660000)
	first := sampleTerritory("f00d", 1772355600000)
	require.NoError(t, c.PutTerritory(second, time.Hour))
	require.NoError(t, c.PutTerritory(first, time.Hour))

	got, found, err := c.GetTerritory("f00d")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first, got)

	_, found, err = c.GetTerritory("nope")
	require.NoError(t, err)
	assert.False(t, found)

	list, err := c.ListTerritories()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "f00d", list[0].ID, "ordered by creation time")
	assert.Equal(t, "b7d1", list[1].ID)

	clock.advance(2 * time.Hour)
	list, err = c.ListTerritories()
	require.NoError(t, err)
	assert.Empty(t, list)
}
