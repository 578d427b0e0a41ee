package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runterritory/server/internal/gpx"
	"github.com/runterritory/server/internal/lib/geo"
)

var errNoInput = errors.New("provide a path with --gpx or --polyline")

// pathFlags selects where a command reads its path from
type pathFlags struct {
	gpxFile  string
	polyline string
}

func (f *pathFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.gpxFile, "gpx", "g", "", "read the path from a GPX file")
	cmd.Flags().StringVarP(&f.polyline, "polyline", "p", "", "read the path from a Google encoded polyline")
	cmd.MarkFlagsMutuallyExclusive("gpx", "polyline")
}

func (f *pathFlags) load(geoUtils geo.GeoUtils) (geo.Path, error) {
	switch {
	case f.gpxFile != "":
		doc, err := gpx.Parse(f.gpxFile)
		if err != nil {
			return nil, err
		}
		return doc.Path()
	case f.polyline != "":
		return geoUtils.DecodePolyline(f.polyline)
	default:
		return nil, errNoInput
	}
}

// parseCoordinate reads a "lat,lng" pair
func parseCoordinate(value string) (geo.Coordinate, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return geo.Coordinate{}, fmt.Errorf("invalid coordinate %q: expected lat,lng", value)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid latitude in %q: %w", value, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid longitude in %q: %w", value, err)
	}

	return geo.NewCoordinate(lat, lng), nil
}
