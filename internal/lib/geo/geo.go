package geo

import (
	"fmt"
	"math"
	"slices"

	"github.com/twpayne/go-polyline"
)

// geoUtils implements the GeoUtils interface
type geoUtils struct{}

// NewGeoUtils creates a new GeoUtils implementation
func NewGeoUtils() GeoUtils {
	return &geoUtils{}
}

// PointToPoint calculates great-circle distance between two coordinates using the Haversine formula.
// Inputs are not validated; NaN coordinates produce NaN.
func (g *geoUtils) PointToPoint(a, b Coordinate) float64 {
	return haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// PathDistance sums the haversine distance of every consecutive pair
func (g *geoUtils) PathDistance(path Path) float64 {
	if len(path) < 2 {
		return 0
	}

	total := 0.0
	for i := 1; i < len(path); i++ {
		total += g.PointToPoint(path[i-1], path[i])
	}
	return total
}

// CumulativeDistances returns distances[i] = distance from path[0] to path[i] along the path
func (g *geoUtils) CumulativeDistances(path Path) []float64 {
	if len(path) == 0 {
		return nil
	}

	distances := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		distances[i] = distances[i-1] + g.PointToPoint(path[i-1], path[i])
	}
	return distances
}

// ResamplePath produces numPoints coordinates evenly spaced by distance along path.
// Returns an empty path when numPoints <= 1 and the input unchanged when it has fewer than 2 points.
func (g *geoUtils) ResamplePath(path Path, numPoints int) Path {
	if numPoints <= 1 {
		return Path{}
	}
	if len(path) < 2 {
		return path
	}

	distances := g.CumulativeDistances(path)
	total := distances[len(distances)-1]
	step := total / float64(numPoints-1)

	resampled := make(Path, 0, numPoints)
	cursor := 0

	for i := 0; i < numPoints; i++ {
		// Copy the final point verbatim so rounding never moves the end of the path
		if i == numPoints-1 {
			resampled = append(resampled, path[len(path)-1])
			break
		}

		target := float64(i) * step

		// The cumulative array is non-decreasing, so the cursor only moves forward
		for cursor < len(distances)-2 && distances[cursor+1] < target {
			cursor++
		}

		dStart := distances[cursor]
		segmentLength := distances[cursor+1] - dStart
		if segmentLength <= 0 {
			resampled = append(resampled, path[cursor])
			continue
		}

		fraction := clamp((target-dStart)/segmentLength, 0, 1)
		resampled = append(resampled, interpolate(path[cursor], path[cursor+1], fraction))
	}

	return resampled
}

// PointToSegment calculates the distance from point to the segment v->w.
// The projection fraction uses a flat-earth approximation with longitude as x and latitude as y;
// the returned distance is the haversine distance to the projected coordinate. The
// approximation error grows with segment length and with latitude, so it is only
// meant for short GPS segments.
func (g *geoUtils) PointToSegment(point, v, w Coordinate) float64 {
	projection, _ := g.projectOntoSegment(point, v, w)
	return g.PointToPoint(point, projection)
}

// PointToPath calculates the minimum distance from point to any segment of path.
// A single point path falls back to point-to-point distance.
func (g *geoUtils) PointToPath(point Coordinate, path Path) (float64, error) {
	if len(path) == 0 {
		return 0, ErrEmptyPath
	}

	if len(path) == 1 {
		return g.PointToPoint(point, path[0]), nil
	}

	minDistance := math.Inf(1)
	for i := 0; i < len(path)-1; i++ {
		distance := g.PointToSegment(point, path[i], path[i+1])
		if distance < minDistance {
			minDistance = distance
		}
	}

	return minDistance, nil
}

// ClosestPointOnPath returns the projection of point onto the nearest segment of path
func (g *geoUtils) ClosestPointOnPath(point Coordinate, path Path) (Coordinate, error) {
	if len(path) == 0 {
		return Coordinate{}, ErrEmptyPath
	}

	if len(path) == 1 {
		return path[0], nil
	}

	var closest Coordinate
	minDistance := math.Inf(1)
	for i := 0; i < len(path)-1; i++ {
		projection, _ := g.projectOntoSegment(point, path[i], path[i+1])
		distance := g.PointToPoint(point, projection)
		if distance < minDistance {
			minDistance = distance
			closest = projection
		}
	}

	return closest, nil
}

// projectOntoSegment returns the planar projection of point onto v->w and its fraction t
func (g *geoUtils) projectOntoSegment(point, v, w Coordinate) (Coordinate, float64) {
	dx := w.Longitude - v.Longitude
	dy := w.Latitude - v.Latitude

	lengthSquared := dx*dx + dy*dy
	if lengthSquared == 0 {
		return v, 0
	}

	t := ((point.Longitude-v.Longitude)*dx + (point.Latitude-v.Latitude)*dy) / lengthSquared
	t = clamp(t, 0, 1)

	return Coordinate{
		Latitude:  v.Latitude + t*dy,
		Longitude: v.Longitude + t*dx,
	}, t
}

// DecodePolyline decodes Google polyline string to a path
func (g *geoUtils) DecodePolyline(encoded string) (Path, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: encoded string is empty", ErrInvalidPolyline)
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolyline, err)
	}

	path := make(Path, len(coords))
	for i, coord := range coords {
		path[i] = NewCoordinate(coord[0], coord[1])
	}

	return path, nil
}

// EncodePolyline encodes latitude and longitude of every coordinate; optional fields are dropped
func (g *geoUtils) EncodePolyline(path Path) string {
	coords := make([][]float64, len(path))
	for i, c := range path {
		coords[i] = []float64{c.Latitude, c.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// Clone returns a copy of path that shares no backing array with it
func Clone(path Path) Path {
	return slices.Clone(path)
}

// haversine returns the great-circle distance in meters between two lat/lon pairs in degrees
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// interpolate linearly blends a and b. Fraction 0 reuses a as-is so its optional fields survive.
func interpolate(a, b Coordinate, fraction float64) Coordinate {
	if fraction == 0 {
		return a
	}

	c := Coordinate{
		Latitude:  a.Latitude + (b.Latitude-a.Latitude)*fraction,
		Longitude: a.Longitude + (b.Longitude-a.Longitude)*fraction,
	}

	if a.Timestamp != nil && b.Timestamp != nil {
		ts := *a.Timestamp + int64(math.Round(float64(*b.Timestamp-*a.Timestamp)*fraction))
		c.Timestamp = &ts
	}

	if a.Elevation != nil && b.Elevation != nil {
		ele := *a.Elevation + (*b.Elevation-*a.Elevation)*fraction
		c.Elevation = &ele
	}

	return c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
