package territory

import (
	"fmt"
	"io"

	"github.com/twpayne/go-kml"
)

// WriteKML renders territories as a KML document. Each territory becomes a
// folder holding its polygon and a placemark on its center.
func WriteKML(w io.Writer, name string, territories []Territory) error {
	doc := kml.Document(kml.Name(name))

	for _, t := range territories {
		ring := make([]kml.Coordinate, len(t.Coordinates))
		for i, c := range t.Coordinates {
			ring[i] = kml.Coordinate{Lon: c.Longitude, Lat: c.Latitude}
			if c.Elevation != nil {
				ring[i].Alt = *c.Elevation
			}
		}

		doc.Add(kml.Folder(
			kml.Name(t.ID),
			kml.Placemark(
				kml.Name(fmt.Sprintf("Territory %s", t.ID)),
				kml.Description(fmt.Sprintf("status: %s, points: %d", t.Status, len(t.Coordinates))),
				kml.Polygon(
					kml.OuterBoundaryIs(
						kml.LinearRing(
							kml.Coordinates(ring...),
						),
					),
				),
			),
			kml.Placemark(
				kml.Name("Center"),
				kml.Point(
					kml.Coordinates(kml.Coordinate{Lon: t.Center.Longitude, Lat: t.Center.Latitude}),
				),
			),
		))
	}

	if err := kml.KML(doc).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}
