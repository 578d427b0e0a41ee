package api

import (
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/runterritory/server/internal/cache"
	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/runs"
)

func handleCreateRoute(geoUtils geo.GeoUtils, repo *cache.RunRepository) http.HandlerFunc {
	type request struct {
		pathInput
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := readJSON(r, &req); err != nil {
			writeBodyError(w, err)
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		path, err := req.resolve(geoUtils)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		route := &runs.Route{
			ID:            uuid.NewString(),
			Name:          req.Name,
			Description:   req.Description,
			Path:          path,
			TotalDistance: math.Round(geoUtils.PathDistance(path)*100) / 100,
		}
		if err := repo.PutRoute(r.Context(), route); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store route")
			return
		}
		writeJSON(w, http.StatusCreated, route)
	}
}

func handleGetRoute(repo *cache.RunRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		route, err := repo.GetRoute(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, cache.ErrNotFound) {
			writeError(w, http.StatusNotFound, "route not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load route")
			return
		}
		writeJSON(w, http.StatusOK, route)
	}
}

// handleCompleteRun saves the submitted run as active, then completes it
// through the pace gate and the route record check
func handleCompleteRun(deps Dependencies, service *runs.Service) http.HandlerFunc {
	type request struct {
		pathInput
		RunID           string   `json:"run_id"`
		RouteID         string   `json:"route_id"`
		DurationSeconds float64  `json:"duration_seconds"`
		EndedAt         int64    `json:"ended_at"`
		TerritoryIDs    []string `json:"territory_ids"`
	}
	type response struct {
		Run       *runs.Run `json:"run"`
		NewRecord bool      `json:"new_record"`
	}

	logger := deps.Logger.Sugar().Named("api")

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := readJSON(r, &req); err != nil {
			writeBodyError(w, err)
			return
		}

		path, err := req.resolve(deps.GeoUtils)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		run := &runs.Run{
			ID:      req.RunID,
			RouteID: req.RouteID,
			Path:    path,
			Status:  runs.Active,
		}
		if run.ID == "" {
			run.ID = uuid.NewString()
		}
		runs.Recompute(run, deps.GeoUtils)

		ctx := r.Context()
		if err := deps.Runs.UpdateRun(ctx, run); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store run")
			return
		}

		completed, err := service.CompleteRun(ctx, run.ID, runs.FinalData{
			EndedAt:      req.EndedAt,
			Duration:     req.DurationSeconds,
			Distance:     run.Distance,
			TerritoryIDs: req.TerritoryIDs,
			RouteID:      req.RouteID,
		})
		if errors.Is(err, runs.ErrRunRejected) {
			if deps.Metrics != nil {
				deps.Metrics.PaceRejections.Inc()
			}
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err != nil {
			logger.Errorw("Failed to complete run", "run_id", run.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to complete run")
			return
		}

		resp := response{Run: completed}
		if req.RouteID != "" {
			if route, err := deps.Runs.GetRoute(ctx, req.RouteID); err == nil {
				resp.NewRecord = route.BestRunID == completed.ID
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
