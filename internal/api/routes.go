package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/runterritory/server/internal/lib/runs"
)

func addRoutes(r chi.Router, deps Dependencies) {
	runService := runs.NewService(deps.Runs, deps.Runs, deps.Verifier, deps.Logger)

	r.Get("/healthz", handleHealth(deps.Store))
	if deps.Metrics != nil {
		r.Method("GET", "/metrics", deps.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/distance", handleDistance(deps.GeoUtils))
		r.Post("/resample", handleResample(deps.GeoUtils, deps.MaxResamplePoints))

		r.Post("/verify/proximity", handleProximity(deps.GeoUtils, deps.Verifier))
		r.Post("/verify/on-route", handleOnRoute(deps.Verifier))
		r.Post("/verify/pace", handlePace(deps.Verifier, deps.Metrics))

		r.Post("/territories", handleCreateTerritory(deps))
		r.Get("/territories", handleListTerritories(deps.Store))
		r.Get("/territories.kml", handleTerritoriesKML(deps.Store, deps.Logger.Sugar().Named("api")))
		r.Get("/territories/{id}", handleGetTerritory(deps.Store))

		r.Post("/routes", handleCreateRoute(deps.GeoUtils, deps.Runs))
		r.Get("/routes/{id}", handleGetRoute(deps.Runs))
		r.Post("/runs/complete", handleCompleteRun(deps, runService))
	})
}
