package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/runterritory/server/internal/api"
	"github.com/runterritory/server/internal/cache"
	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/territory"
	"github.com/runterritory/server/internal/lib/verification"
)

func newServeCommand(a *app) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the geo engine over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config
			if address != "" {
				cfg.Server.Address = address
			}
			log := a.logger.Sugar()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics, err := api.NewCollector(prometheus.DefaultRegisterer)
			if err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}

			store := cache.NewCache(a.logger)
			store.StartPeriodicCleanup(ctx, cfg.Cache.CleanupInterval)

			server := api.New(cfg.Server, api.Dependencies{
				GeoUtils:     geo.NewGeoUtils(),
				Verifier:     verification.NewVerifier(cfg.Verification, a.logger),
				Detector:     territory.NewDetector(cfg.Territory, a.logger),
				Store:        store,
				Runs:         cache.NewRunRepository(store, cfg.Cache.RunTTL),
				Metrics:      metrics,
				TerritoryTTL: cfg.Cache.TerritoryTTL,
				Logger:       a.logger,

				MaxBodyBytes:      cfg.Server.MaxBodyBytes,
				MaxResamplePoints: cfg.Server.MaxResamplePoints,
			})

			if cfg.Verification.DisableAntiCheat {
				log.Warnw("Anti-cheat pace validation is disabled")
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.Run(ctx) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Infow("Shutting down HTTP server")
			if err := server.Shutdown(context.Background()); err != nil {
				return fmt.Errorf("failed to shut down: %w", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "listen address, overrides server.address")
	return cmd
}
