package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/runterritory/server/internal/lib/geo"
)

func newDistanceCommand(a *app) *cobra.Command {
	var input pathFlags

	cmd := &cobra.Command{
		Use:   "distance [lat,lng ...]",
		Short: "Print the length of a path in meters",
		Example: `  runterritory distance 38.0675,-120.5436 38.1391,-120.4561
  runterritory distance --gpx morning-run.gpx
  runterritory distance --polyline '_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			geoUtils := geo.NewGeoUtils()

			var path geo.Path
			if len(args) > 0 {
				for _, arg := range args {
					c, err := parseCoordinate(arg)
					if err != nil {
						return err
					}
					path = append(path, c)
				}
			} else {
				loaded, err := input.load(geoUtils)
				if err != nil {
					return err
				}
				path = loaded
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%.2f m (%d points)\n", geoUtils.PathDistance(path), len(path))
			return nil
		},
	}

	input.register(cmd)
	return cmd
}

func newResampleCommand(a *app) *cobra.Command {
	var (
		input     pathFlags
		numPoints int
		format    string
	)

	cmd := &cobra.Command{
		Use:   "resample",
		Short: "Resample a path into evenly spaced points",
		RunE: func(cmd *cobra.Command, args []string) error {
			geoUtils := geo.NewGeoUtils()

			path, err := input.load(geoUtils)
			if err != nil {
				return err
			}

			resampled := geoUtils.ResamplePath(path, numPoints)
			switch format {
			case "polyline":
				fmt.Fprintln(cmd.OutOrStdout(), geoUtils.EncodePolyline(resampled))
				return nil
			case "json":
				return printJSON(cmd.OutOrStdout(), resampled)
			default:
				return fmt.Errorf("unknown format %q: use json or polyline", format)
			}
		},
	}

	input.register(cmd)
	cmd.Flags().IntVarP(&numPoints, "points", "n", 100, "number of output points")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or polyline")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
