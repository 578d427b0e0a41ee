package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/runterritory/server/internal/lib/geo"
)

var errNoPath = errors.New("path or polyline is required")

// pathInput accepts a path either as coordinates or as an encoded polyline
type pathInput struct {
	Path     geo.Path `json:"path"`
	Polyline string   `json:"polyline"`
}

func (in pathInput) resolve(geoUtils geo.GeoUtils) (geo.Path, error) {
	if in.Polyline != "" {
		path, err := geoUtils.DecodePolyline(in.Polyline)
		if err != nil {
			return nil, fmt.Errorf("decoding polyline: %w", err)
		}
		return path, nil
	}
	if len(in.Path) == 0 {
		return nil, errNoPath
	}
	return in.Path, nil
}

func handleDistance(geoUtils geo.GeoUtils) http.HandlerFunc {
	type response struct {
		DistanceMeters float64 `json:"distance_meters"`
		Points         int     `json:"points"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req pathInput
		if err := readJSON(r, &req); err != nil {
			writeBodyError(w, err)
			return
		}

		path, err := req.resolve(geoUtils)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, response{
			DistanceMeters: geoUtils.PathDistance(path),
			Points:         len(path),
		})
	}
}

func handleResample(geoUtils geo.GeoUtils, maxPoints int) http.HandlerFunc {
	type request struct {
		pathInput
		NumPoints int `json:"num_points"`
	}
	type response struct {
		Path geo.Path `json:"path"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := readJSON(r, &req); err != nil {
			writeBodyError(w, err)
			return
		}

		if req.NumPoints < 0 || req.NumPoints > maxPoints {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("num_points must be between 0 and %d", maxPoints))
			return
		}

		path, err := req.resolve(geoUtils)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		resampled := geoUtils.ResamplePath(path, req.NumPoints)
		if resampled == nil {
			resampled = geo.Path{}
		}
		writeJSON(w, http.StatusOK, response{Path: resampled})
	}
}
