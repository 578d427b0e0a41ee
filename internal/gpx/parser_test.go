package gpx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runterritory/server/internal/lib/geo"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="StravaGPX" xmlns="http://www.topografix.com/GPX/1/1">
  <metadata><name>Morning Run</name></metadata>
  <trk>
    <name>Orla do Guaiba</name>
    <trkseg>
      <trkpt lat="0.0" lon="0.0"><ele>10.5</ele><time>2026-03-01T09:00:00Z</time></trkpt>
      <trkpt lon="0.0009" lat="0.0"><ele>11.0</ele><time>2026-03-01T09:00:30Z</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="0.0" lon="0.0018"><time>not-a-time</time></trkpt>
      <trkpt lat="120.0" lon="0.0018"></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestParseReader(t *testing.T) {
	doc, err := ParseReader(strings.NewReader(sampleGPX))
	require.NoError(t, err)
	assert.Equal(t, "1.1", doc.Version)
	assert.Equal(t, "Morning Run", doc.Name())

	path, err := doc.Path()
	require.NoError(t, err)
	require.Len(t, path, 3, "out of range point is skipped")

	require.NotNil(t, path[0].Elevation)
	assert.Equal(t, 10.5, *path[0].Elevation)
	require.NotNil(t, path[0].Timestamp)
	assert.Equal(t, int64(1772355600000), *path[0].Timestamp)
	assert.Equal(t, int64(30000), *path[1].Timestamp-*path[0].Timestamp)

	assert.InDelta(t, 0.0009, path[1].Longitude, 1e-12, "attribute order does not matter")
	assert.Nil(t, path[2].Elevation)
	assert.Nil(t, path[2].Timestamp, "unparseable time is dropped")
}

func TestToRoute(t *testing.T) {
	doc, err := ParseReader(strings.NewReader(sampleGPX))
	require.NoError(t, err)

	route, err := doc.ToRoute("", geo.NewGeoUtils())
	require.NoError(t, err)
	assert.Equal(t, "Morning Run", route.Name)
	assert.Len(t, route.Path, 3)
	assert.Equal(t, 200.15, route.TotalDistance)
}

func TestRouteFallback(t *testing.T) {
	doc, err := ParseReader(strings.NewReader(`<gpx version="1.1"><rte><name>Planned</name>
		<rtept lat="1" lon="1"/><rtept lat="1.001" lon="1"/></rte></gpx>`))
	require.NoError(t, err)

	path, err := doc.Path()
	require.NoError(t, err)
	assert.Len(t, path, 2)
	assert.Equal(t, "Planned", doc.Name())
}

func TestNoPoints(t *testing.T) {
	doc, err := ParseReader(strings.NewReader(`<gpx version="1.1"><trk><trkseg></trkseg></trk></gpx>`))
	require.NoError(t, err)

	_, err = doc.Path()
	assert.ErrorIs(t, err, ErrNoTrackPoints)

	_, err = ParseReader(strings.NewReader("not xml"))
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "orla-loop.gpx")
	require.NoError(t, os.WriteFile(filename, []byte(sampleGPX), 0o600))

	doc, err := Parse(filename)
	require.NoError(t, err)
	assert.Len(t, doc.Tracks, 1)
	assert.Equal(t, "orla-loop", RouteNameFromFile(filename))

	_, err = Parse(filepath.Join(t.TempDir(), "missing.gpx"))
	assert.Error(t, err)
}
