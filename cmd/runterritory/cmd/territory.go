package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/territory"
)

func newTerritoryCommand(a *app) *cobra.Command {
	var (
		input   pathFlags
		kmlFile string
	)

	cmd := &cobra.Command{
		Use:   "territory",
		Short: "Capture a territory from a route that closes a loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			route, err := input.load(geo.NewGeoUtils())
			if err != nil {
				return err
			}

			detector := territory.NewDetector(a.config.Territory, a.logger)
			t := detector.DetectFromRoute(route)
			if t == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "route does not close a loop (%d points)\n", len(route))
				return nil
			}

			if kmlFile != "" {
				f, err := os.Create(kmlFile)
				if err != nil {
					return fmt.Errorf("failed to create KML file: %w", err)
				}
				defer f.Close()

				if err := territory.WriteKML(f, "Territory "+t.ID, []territory.Territory{*t}); err != nil {
					return err
				}
			}

			return printJSON(cmd.OutOrStdout(), t)
		},
	}

	input.register(cmd)
	cmd.Flags().StringVar(&kmlFile, "kml", "", "also write the territory to a KML file")
	return cmd
}
