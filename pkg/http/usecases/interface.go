package usecases

import (
	"context"
	"time"

	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/tripstore"
)

// DirectionsClient computes routes through an external directions backend.
// Recalculate must honor ctx so an abandoned reroute can be cut short.
type DirectionsClient interface {
	FetchRoute(ctx context.Context, waypoints []datastructure.Waypoint) (*datastructure.Route, error)
	Recalculate(ctx context.Context, from datastructure.LocationFix,
		remaining []datastructure.Waypoint) (*datastructure.Route, error)
}

// TripRecorder persists the trip log of every session.
type TripRecorder interface {
	CreateTrip(ctx context.Context, t tripstore.Trip) (string, error)
	RecordArrival(ctx context.Context, tripID string, a tripstore.Arrival) error
	RecordReroute(ctx context.Context, tripID string, r tripstore.Reroute) error
	CompleteTrip(ctx context.Context, tripID, state string, completedAt time.Time) error
}
