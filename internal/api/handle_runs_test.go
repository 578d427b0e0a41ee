package api

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/runs"
)

// 1km along the equator
var kilometer = geo.Path{geo.NewCoordinate(0, 0), geo.NewCoordinate(0, 0.0045), geo.NewCoordinate(0, 0.009)}

type completeResponse struct {
	Run       *runs.Run `json:"run"`
	NewRecord bool      `json:"new_record"`
}

func createRoute(t *testing.T, s *testServer) runs.Route {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/routes", map[string]any{"name": "Equator kilometer", "path": kilometer})
	require.Equal(t, http.StatusCreated, rec.Code)
	route := decode[runs.Route](t, rec)
	require.NotEmpty(t, route.ID)
	return route
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)

	route := createRoute(t, s)
	assert.Equal(t, "Equator kilometer", route.Name)
	assert.Equal(t, 1000.75, route.TotalDistance)

	rec := s.do(t, http.MethodGet, "/v1/routes/"+route.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, route, decode[runs.Route](t, rec))

	rec = s.do(t, http.MethodGet, "/v1/routes/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/routes", map[string]any{"path": kilometer})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteRun(t *testing.T) {
	s := newTestServer(t)
	route := createRoute(t, s)

	t.Run("first run sets the record", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/runs/complete", map[string]any{
			"run_id":           "steady",
			"route_id":         route.ID,
			"path":             kilometer,
			"duration_seconds": 330,
			"ended_at":         1772355930000,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[completeResponse](t, rec)
		require.NotNil(t, body.Run)
		assert.Equal(t, runs.Completed, body.Run.Status)
		assert.InDelta(t, 1000.75, body.Run.Distance, 0.01, "distance is derived from the path")
		assert.Equal(t, int64(1772355930000), body.Run.EndedAt)
		assert.True(t, body.NewRecord)
	})

	t.Run("slower run keeps the record", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/runs/complete", map[string]any{
			"route_id":         route.ID,
			"path":             kilometer,
			"duration_seconds": 420,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[completeResponse](t, rec)
		assert.NotEmpty(t, body.Run.ID, "an id is assigned")
		assert.False(t, body.NewRecord)

		rec = s.do(t, http.MethodGet, "/v1/routes/"+route.ID, nil)
		assert.Equal(t, "steady", decode[runs.Route](t, rec).BestRunID)
	})

	t.Run("implausible pace is rejected", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/runs/complete", map[string]any{
			"route_id":         route.ID,
			"path":             kilometer,
			"duration_seconds": 60,
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode[map[string]string](t, rec)
		assert.Contains(t, body["error"], "run rejected: Speed too high")
		assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.PaceRejections))
	})

	t.Run("unknown route does not fail completion", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/runs/complete", map[string]any{
			"route_id":         "deleted-route",
			"path":             kilometer,
			"duration_seconds": 400,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[completeResponse](t, rec)
		assert.Equal(t, runs.Completed, body.Run.Status)
		assert.False(t, body.NewRecord)
	})

	t.Run("missing path", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/runs/complete", map[string]any{"duration_seconds": 400})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
