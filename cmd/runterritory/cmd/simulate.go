package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/runs"
	"github.com/runterritory/server/internal/lib/simulate"
	"github.com/runterritory/server/internal/lib/territory"
	"github.com/runterritory/server/internal/lib/tracking"
	"github.com/runterritory/server/internal/lib/verification"
)

func newSimulateCommand(a *app) *cobra.Command {
	var (
		input      pathFlags
		start      string
		loopMeters float64
		loopPoints int
		overrides  simulate.Config
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a route as a live location stream and track the run",
		Long: `Replay a route at a constant pace, feeding every simulated position into a run
tracker. Without --gpx or --polyline a circular loop of --loop-meters is
generated from --start. Each position is printed as a JSON line, followed by
the run summary, the completed run (or why it was rejected) and a territory
when the run closed a loop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			route, err := simulatedRoute(&input, start, loopMeters, loopPoints)
			if err != nil {
				return err
			}

			config := a.config.Simulator
			if cmd.Flags().Changed("pace") {
				config.PaceMinPerKm = overrides.PaceMinPerKm
			}
			if cmd.Flags().Changed("interval") {
				config.Interval = overrides.Interval
			}
			if cmd.Flags().Changed("laps") {
				config.Laps = overrides.Laps
			}

			simulator, err := simulate.NewSimulator(route, config, a.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			positions, err := simulator.Start(ctx)
			if err != nil {
				return err
			}
			defer simulator.Stop()

			verifier := verification.NewVerifier(a.config.Verification, a.logger)
			tracker := tracking.NewTracker(verifier, a.logger)

			if err := trackPositions(ctx, cmd.OutOrStdout(), tracker, route, positions); err != nil {
				return err
			}

			summary, err := tracker.Stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "distance: %.2f m, duration: %.0f s, off-route samples: %d\n",
				summary.DistanceMeters, summary.DurationSeconds, summary.OffRouteSamples)

			detector := territory.NewDetector(a.config.Territory, a.logger)
			captured := detector.DetectFromRoute(summary.Path)

			run := &runs.Run{ID: uuid.NewString(), Path: summary.Path, Status: runs.Active}
			final := runs.FinalData{
				EndedAt:  time.Now().UnixMilli(),
				Duration: summary.DurationSeconds,
				Distance: summary.DistanceMeters,
			}
			if last, ok := summary.Path.Last(); ok && last.Timestamp != nil {
				final.EndedAt = *last.Timestamp
			}
			if captured != nil {
				final.TerritoryIDs = []string{captured.ID}
			}

			if err := runs.Complete(run, final, verifier); err != nil {
				if !errors.Is(err, runs.ErrRunRejected) {
					return err
				}
				fmt.Fprintln(out, err)
			} else if err := printJSON(out, run); err != nil {
				return err
			}

			if captured != nil {
				return printJSON(out, captured)
			}
			return nil
		},
	}

	defaults := simulate.DefaultConfig()
	input.register(cmd)
	cmd.Flags().StringVar(&start, "start", "-30.0346,-51.2177", "start of the generated loop as lat,lng")
	cmd.Flags().Float64Var(&loopMeters, "loop-meters", 1000, "circumference of the generated loop")
	cmd.Flags().IntVar(&loopPoints, "loop-points", 36, "points of the generated loop")
	cmd.Flags().Float64Var(&overrides.PaceMinPerKm, "pace", defaults.PaceMinPerKm, "pace in minutes per kilometer")
	cmd.Flags().DurationVar(&overrides.Interval, "interval", defaults.Interval, "time between positions")
	cmd.Flags().IntVar(&overrides.Laps, "laps", defaults.Laps, "laps to run, 0 runs until interrupted")
	return cmd
}

func simulatedRoute(input *pathFlags, start string, loopMeters float64, loopPoints int) (geo.Path, error) {
	route, err := input.load(geo.NewGeoUtils())
	if err == nil {
		return route, nil
	}
	if !errors.Is(err, errNoInput) {
		return nil, err
	}

	origin, err := parseCoordinate(start)
	if err != nil {
		return nil, err
	}
	return simulate.LoopRoute(origin, loopMeters, loopPoints), nil
}

// trackPositions starts the tracker on the first position and prints the
// update of every position until the stream ends
func trackPositions(ctx context.Context, out io.Writer, tracker *tracking.Tracker, route geo.Path, positions <-chan geo.Coordinate) error {
	first, ok := <-positions
	if !ok {
		return errors.New("simulation ended before emitting a position")
	}
	if err := tracker.Start(first, route); err != nil {
		return err
	}
	if err := printJSON(out, tracking.Update{Location: first, OnRoute: tracker.OnRoute()}); err != nil {
		return err
	}

	var printErr error
	err := tracker.Consume(ctx, positions, func(update tracking.Update) {
		if printErr == nil {
			printErr = printJSON(out, update)
		}
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return err
	}
	return printErr
}
