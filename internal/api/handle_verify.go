package api

import (
	"net/http"

	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/verification"
)

type locationRequest struct {
	Location *geo.Coordinate `json:"location"`
	Route    geo.Path        `json:"route"`
}

func handleProximity(geoUtils geo.GeoUtils, verifier verification.Verifier) http.HandlerFunc {
	type response struct {
		NearStart      bool     `json:"near_start"`
		DistanceMeters *float64 `json:"distance_meters,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req locationRequest
		if err := readJSON(r, &req); err != nil {
			writeBodyError(w, err)
			return
		}
		if req.Location == nil {
			writeError(w, http.StatusBadRequest, "location is required")
			return
		}

		resp := response{NearStart: verifier.CheckProximityToStart(*req.Location, req.Route)}
		if start, ok := req.Route.First(); ok {
			distance := geoUtils.PointToPoint(*req.Location, start)
			resp.DistanceMeters = &distance
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleOnRoute(verifier verification.Verifier) http.HandlerFunc {
	type response struct {
		OnRoute         bool     `json:"on_route"`
		DeviationMeters *float64 `json:"deviation_meters,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req locationRequest
		if err := readJSON(r, &req); err != nil {
			writeBodyError(w, err)
			return
		}
		if req.Location == nil {
			writeError(w, http.StatusBadRequest, "location is required")
			return
		}

		resp := response{OnRoute: verifier.IsOnRoute(*req.Location, req.Route)}
		if deviation, err := verifier.DeviationFromRoute(*req.Location, req.Route); err == nil {
			resp.DeviationMeters = &deviation
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handlePace(verifier verification.Verifier, metrics *Collector) http.HandlerFunc {
	type request struct {
		DurationSeconds float64 `json:"duration_seconds"`
		DistanceMeters  float64 `json:"distance_meters"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := readJSON(r, &req); err != nil {
			writeBodyError(w, err)
			return
		}

		result := verifier.ValidateRunPace(req.DurationSeconds, req.DistanceMeters)
		if !result.Valid && metrics != nil {
			metrics.PaceRejections.Inc()
		}
		writeJSON(w, http.StatusOK, result)
	}
}
