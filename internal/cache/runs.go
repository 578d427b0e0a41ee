package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runterritory/server/internal/lib/runs"
)

const (
	runPrefix   = "run:"
	routePrefix = "route:"
)

// ErrNotFound is returned when a run or route is missing or expired
var ErrNotFound = errors.New("not found")

// RunRepository keeps runs and routes in the cache. It satisfies both
// runs.RunStore and runs.RouteStore.
type RunRepository struct {
	cache *Cache
	ttl   time.Duration
}

// NewRunRepository stores every run and route for ttl after its last write
func NewRunRepository(cache *Cache, ttl time.Duration) *RunRepository {
	return &RunRepository{cache: cache, ttl: ttl}
}

// GetRun retrieves a run by id
func (r *RunRepository) GetRun(_ context.Context, id string) (*runs.Run, error) {
	var run runs.Run
	found, err := r.cache.Get(runPrefix+id, &run)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return &run, nil
}

// UpdateRun saves a run under its id
func (r *RunRepository) UpdateRun(_ context.Context, run *runs.Run) error {
	return r.cache.Set(runPrefix+run.ID, run, r.ttl, "run")
}

// PutRoute saves a route under its id
func (r *RunRepository) PutRoute(_ context.Context, route *runs.Route) error {
	return r.cache.Set(routePrefix+route.ID, route, r.ttl, "route")
}

// GetRoute retrieves a route by id
func (r *RunRepository) GetRoute(_ context.Context, id string) (*runs.Route, error) {
	var route runs.Route
	found, err := r.cache.Get(routePrefix+id, &route)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("route %s: %w", id, ErrNotFound)
	}
	return &route, nil
}

// SetBestRun records runID as the best run of the route
func (r *RunRepository) SetBestRun(ctx context.Context, routeID, runID string) error {
	route, err := r.GetRoute(ctx, routeID)
	if err != nil {
		return err
	}
	route.BestRunID = runID
	return r.PutRoute(ctx, route)
}
