package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/runterritory/server/internal/cache"
	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/territory"
)

func handleCreateTerritory(deps Dependencies) http.HandlerFunc {
	type request struct {
		Route    geo.Path `json:"route"`
		Polyline string   `json:"polyline"`
	}
	type response struct {
		Territory *territory.Territory `json:"territory"`
	}

	logger := deps.Logger.Sugar().Named("api")

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := readJSON(r, &req); err != nil {
			writeBodyError(w, err)
			return
		}

		route, err := pathInput{Path: req.Route, Polyline: req.Polyline}.resolve(deps.GeoUtils)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		t := deps.Detector.DetectFromRoute(route)
		if t == nil {
			writeJSON(w, http.StatusOK, response{})
			return
		}

		if deps.Metrics != nil {
			deps.Metrics.TerritoriesDetected.Inc()
		}
		if deps.Store != nil {
			if err := deps.Store.PutTerritory(t, deps.TerritoryTTL); err != nil {
				logger.Errorw("Failed to store territory", "id", t.ID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to store territory")
				return
			}
		}

		writeJSON(w, http.StatusCreated, response{Territory: t})
	}
}

func handleListTerritories(store *cache.Cache) http.HandlerFunc {
	type response struct {
		Territories []territory.Territory `json:"territories"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		territories, err := listTerritories(store)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list territories")
			return
		}
		writeJSON(w, http.StatusOK, response{Territories: territories})
	}
}

func handleGetTerritory(store *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeError(w, http.StatusNotFound, "territory not found")
			return
		}

		t, found, err := store.GetTerritory(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load territory")
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "territory not found")
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func handleTerritoriesKML(store *cache.Cache, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		territories, err := listTerritories(store)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list territories")
			return
		}

		w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
		w.WriteHeader(http.StatusOK)
		if err := territory.WriteKML(w, "Territories", territories); err != nil {
			logger.Errorw("Failed to write territories KML", "territories", len(territories), "error", err)
		}
	}
}

func listTerritories(store *cache.Cache) ([]territory.Territory, error) {
	if store == nil {
		return []territory.Territory{}, nil
	}
	territories, err := store.ListTerritories()
	if err != nil {
		return nil, err
	}
	if territories == nil {
		territories = []territory.Territory{}
	}
	return territories, nil
}
