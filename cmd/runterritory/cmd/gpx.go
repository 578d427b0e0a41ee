package cmd

import (
	"github.com/spf13/cobra"

	"github.com/runterritory/server/internal/gpx"
	"github.com/runterritory/server/internal/lib/geo"
)

func newImportGPXCommand(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import-gpx FILE",
		Short: "Convert a GPX file into a route with its total distance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := gpx.Parse(args[0])
			if err != nil {
				return err
			}

			if name == "" {
				name = doc.Name()
			}
			if name == "" {
				name = gpx.RouteNameFromFile(args[0])
			}

			route, err := doc.ToRoute(name, geo.NewGeoUtils())
			if err != nil {
				return err
			}

			a.logger.Sugar().Infow("Imported GPX route",
				"file", args[0],
				"name", route.Name,
				"points", len(route.Path),
				"total_distance", route.TotalDistance)

			return printJSON(cmd.OutOrStdout(), route)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "route name, defaults to the GPX name or the file name")
	return cmd
}
