package runs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/verification"
)

// FinalData is what the caller measured when the runner stopped
type FinalData struct {
	EndedAt      int64
	Duration     float64 // seconds
	Distance     float64 // meters
	TerritoryIDs []string
	RouteID      string
}

// Complete validates the pace and marks the run completed in place. Rejected
// runs are left untouched so the collected path is not lost.
func Complete(run *Run, final FinalData, verifier verification.Verifier) error {
	result := verifier.ValidateRunPace(final.Duration, final.Distance)
	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrRunRejected, result.Reason)
	}

	run.EndedAt = final.EndedAt
	run.Duration = final.Duration
	run.Distance = final.Distance
	run.Status = Completed
	if final.TerritoryIDs != nil {
		run.TerritoryIDs = final.TerritoryIDs
	}
	if final.RouteID != "" {
		run.RouteID = final.RouteID
	}
	return nil
}

// IsNewRecord reports whether run beats the route's best run. The first run on
// a route is always a record; otherwise the lower duration wins.
func IsNewRecord(best *Run, run *Run) bool {
	if best == nil {
		return true
	}
	return run.Duration < best.Duration
}

// Recompute refreshes the derived distance of a run from its path
func Recompute(run *Run, geoUtils geo.GeoUtils) {
	run.Distance = geoUtils.PathDistance(run.Path)
}

// Service completes runs against collaborator stores
type Service struct {
	runs     RunStore
	routes   RouteStore
	verifier verification.Verifier
	logger   *zap.SugaredLogger
}

// NewService creates a run completion service
func NewService(runs RunStore, routes RouteStore, verifier verification.Verifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runs:     runs,
		routes:   routes,
		verifier: verifier,
		logger:   logger.Sugar().Named("runs"),
	}
}

// CompleteRun loads the run, validates and persists it, then updates the route
// record when beaten. A failed record update is logged and never fails the
// completion: the run is already saved.
func (s *Service) CompleteRun(ctx context.Context, id string, final FinalData) (*Run, error) {
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	if err := Complete(run, final, s.verifier); err != nil {
		return nil, err
	}

	if err := s.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run %s: %w", id, err)
	}

	if final.RouteID != "" {
		if err := s.updateRouteRecord(ctx, final.RouteID, run); err != nil {
			s.logger.Warnw("Failed to update route record",
				"run_id", run.ID,
				"route_id", final.RouteID,
				"error", err)
		}
	}

	return run, nil
}

func (s *Service) updateRouteRecord(ctx context.Context, routeID string, run *Run) error {
	route, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return fmt.Errorf("failed to load route %s: %w", routeID, err)
	}

	var best *Run
	if route.BestRunID != "" {
		// A missing previous best counts as no record
		if previous, err := s.runs.GetRun(ctx, route.BestRunID); err == nil {
			best = previous
		}
	}

	if !IsNewRecord(best, run) {
		return nil
	}

	if err := s.routes.SetBestRun(ctx, routeID, run.ID); err != nil {
		return fmt.Errorf("failed to update record for route %s: %w", routeID, err)
	}
	return nil
}
