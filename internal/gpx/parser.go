// Package gpx imports GPX tracks as paths and routes.
package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/runs"
)

// ErrNoTrackPoints is returned when a GPX document holds no usable points
var ErrNoTrackPoints = errors.New("no track points found in GPX")

// Point is a GPX track or route point
type Point struct {
	Lat       float64  `xml:"lat,attr"`
	Lon       float64  `xml:"lon,attr"`
	Elevation *float64 `xml:"ele"`
	Time      string   `xml:"time"`
}

// TrackSegment represents a track segment
type TrackSegment struct {
	Points []Point `xml:"trkpt"`
}

// Track represents a GPX track with segments
type Track struct {
	Name     string         `xml:"name"`
	Segments []TrackSegment `xml:"trkseg"`
}

// Route represents a GPX planned route
type Route struct {
	Name   string  `xml:"name"`
	Points []Point `xml:"rtept"`
}

// GPX represents the parts of a GPX document this importer reads
type GPX struct {
	XMLName  xml.Name `xml:"gpx"`
	Version  string   `xml:"version,attr"`
	Creator  string   `xml:"creator,attr"`
	Metadata struct {
		Name string `xml:"name"`
	} `xml:"metadata"`
	Tracks []Track `xml:"trk"`
	Routes []Route `xml:"rte"`
}

// Parse reads and parses a GPX file
func Parse(filename string) (*GPX, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file)
}

// ParseReader parses GPX from an io.Reader
func ParseReader(r io.Reader) (*GPX, error) {
	var doc GPX
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}
	return &doc, nil
}

// Path flattens every track segment into one path in document order. Documents
// without tracks fall back to their route points. Points with non-finite or
// out-of-range coordinates are skipped.
func (g *GPX) Path() (geo.Path, error) {
	var path geo.Path
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			path = appendPoints(path, segment.Points)
		}
	}

	if len(path) == 0 {
		for _, route := range g.Routes {
			path = appendPoints(path, route.Points)
		}
	}

	if len(path) == 0 {
		return nil, ErrNoTrackPoints
	}
	return path, nil
}

// Name returns the first name found in metadata, tracks or routes
func (g *GPX) Name() string {
	if g.Metadata.Name != "" {
		return g.Metadata.Name
	}
	for _, track := range g.Tracks {
		if track.Name != "" {
			return track.Name
		}
	}
	for _, route := range g.Routes {
		if route.Name != "" {
			return route.Name
		}
	}
	return ""
}

// ToRoute converts the document into a route with its total distance rounded to centimeters
func (g *GPX) ToRoute(name string, geoUtils geo.GeoUtils) (*runs.Route, error) {
	path, err := g.Path()
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = g.Name()
	}

	return &runs.Route{
		Name:          name,
		Path:          path,
		TotalDistance: math.Round(geoUtils.PathDistance(path)*100) / 100,
	}, nil
}

// RouteNameFromFile derives a route name from a GPX file name
func RouteNameFromFile(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}

func appendPoints(path geo.Path, points []Point) geo.Path {
	for _, p := range points {
		if !validPoint(p) {
			continue
		}

		c := geo.NewCoordinate(p.Lat, p.Lon)
		if p.Elevation != nil {
			c = c.WithElevation(*p.Elevation)
		}
		if ts, ok := parseTime(p.Time); ok {
			c = c.WithTimestamp(ts.UnixMilli())
		}
		path = append(path, c)
	}
	return path
}

func validPoint(p Point) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
