package navigator

import (
	"context"
	"time"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/util"
)

// RouteFetcher is the external routing collaborator. Recalculate builds a
// fresh route from the given position through the remaining waypoints in
// order. implementations must honor ctx.
type RouteFetcher interface {
	Recalculate(ctx context.Context, from datastructure.LocationFix,
		remaining []datastructure.Waypoint) (*datastructure.Route, error)
}

// rerouteArbiter owns the RerouteState machine:
//
//	IDLE -> PENDING_PERMISSION -> RECALCULATING -> APPLYING -> IDLE
//
// with every transition driven from the serial pipeline. a completion is
// matched against seq so a result that arrives after teardown of its cycle
// (superseded, aborted) is dropped. the arbiter guards state only; launching
// the recalculation goroutine and emitting events is the router's job.
type rerouteArbiter struct {
	cfg Config

	state         pkg.RerouteState
	proactive     bool
	seq           uint64
	lastFailureAt time.Time
}

func newRerouteArbiter(cfg Config) *rerouteArbiter {
	return &rerouteArbiter{cfg: cfg, state: pkg.REROUTE_IDLE}
}

func (a *rerouteArbiter) getState() pkg.RerouteState {
	return a.state
}

// canTrigger is true only in IDLE and outside the failure backoff. a trigger
// while a recalculation is in flight is ignored: it neither queues nor cancels.
func (a *rerouteArbiter) canTrigger(now time.Time) bool {
	if a.state != pkg.REROUTE_IDLE {
		return false
	}
	if a.cfg.RerouteBackoff > 0 && !a.lastFailureAt.IsZero() &&
		now.Sub(a.lastFailureAt) < a.cfg.RerouteBackoff {
		return false
	}
	return true
}

func (a *rerouteArbiter) toPendingPermission() {
	a.state = pkg.REROUTE_PENDING_PERMISSION
}

// decline returns to IDLE after the policy vetoed the reroute.
func (a *rerouteArbiter) decline() {
	a.state = pkg.REROUTE_IDLE
}

// beginRecalculation moves to RECALCULATING and returns the sequence number
// the matching completion must carry.
func (a *rerouteArbiter) beginRecalculation(proactive bool) uint64 {
	a.state = pkg.REROUTE_RECALCULATING
	a.proactive = proactive
	a.seq++
	return a.seq
}

func (a *rerouteArbiter) matches(seq uint64) bool {
	return a.state == pkg.REROUTE_RECALCULATING && seq == a.seq
}

func (a *rerouteArbiter) toApplying() {
	a.state = pkg.REROUTE_APPLYING
}

func (a *rerouteArbiter) noteFailure(now time.Time) {
	a.lastFailureAt = now
}

func (a *rerouteArbiter) finish() {
	a.state = pkg.REROUTE_IDLE
	a.proactive = false
}

// rerouteResult is the completion of one recalculation, delivered back into
// the serial pipeline.
type rerouteResult struct {
	seq       uint64
	route     *datastructure.Route
	err       error
	from      datastructure.LocationFix
	remaining []datastructure.Waypoint
	proactive bool
}

// routePreservesWaypoints checks the recalculated route against the remaining
// waypoints captured at launch: waypoint 0 of the new route is the reroute
// origin, waypoints 1..n must match the remaining destinations in order.
func routePreservesWaypoints(route *datastructure.Route, remaining []datastructure.Waypoint) error {
	if route.NumberOfWaypoints() != len(remaining)+1 {
		return util.WrapErrorf(nil, util.ErrWaypointMismatch,
			"recalculated route has %d waypoints, want %d", route.NumberOfWaypoints(), len(remaining)+1)
	}
	for i, want := range remaining {
		got := route.GetWaypoint(i + 1)
		dist := geo.HaversineDistanceMeter(want.GetCoord(), got.GetCoord())
		if dist > pkg.WAYPOINT_PRESERVE_TOLERANCE_METER {
			return util.WrapErrorf(nil, util.ErrWaypointMismatch,
				"waypoint %d moved %.0fm from %q", i+1, dist, want.GetName())
		}
	}
	return nil
}
