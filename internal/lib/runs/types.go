package runs

import (
	"context"
	"errors"

	"github.com/runterritory/server/internal/lib/geo"
)

// ErrRunRejected is returned when a run fails the anti-cheat gate
var ErrRunRejected = errors.New("run rejected")

// Status of a run record
type Status string

const (
	Active    Status = "active"
	Paused    Status = "paused"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
)

// Run is the record a persistence store keeps for one run
type Run struct {
	ID           string   `json:"id"`
	RouteID      string   `json:"route_id,omitempty"`
	Path         geo.Path `json:"path"`
	Duration     float64  `json:"duration"` // seconds
	Distance     float64  `json:"distance"` // meters
	Status       Status   `json:"status"`
	TerritoryIDs []string `json:"territory_ids,omitempty"`
	EndedAt      int64    `json:"ended_at,omitempty"` // epoch milliseconds
}

// Route is a reusable path runners compete on
type Route struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Path          geo.Path `json:"path"`
	TotalDistance float64  `json:"total_distance"` // meters
	BestRunID     string   `json:"best_run_id,omitempty"`
}

// RunStore persists runs
type RunStore interface {
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRun(ctx context.Context, run *Run) error
}

// RouteStore persists routes and their records
type RouteStore interface {
	GetRoute(ctx context.Context, id string) (*Route, error)
	SetBestRun(ctx context.Context, routeID, runID string) error
}
