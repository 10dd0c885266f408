package navigator

import (
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
)

// Policy is the override surface of the router. every field is optional; a nil
// func means the documented default. decision funcs (Should*, DidArriveAtWaypoint)
// are consulted mid-pipeline and steer the state machine, the rest are pure
// notifications. the *Router handle passed to each func is safe to call back
// into (Consume/AdvanceLeg/RequestReroute are queued, never reentered).
type Policy struct {
	// ShouldDiscard is consulted for a fix the default qualification gates
	// would discard. true upholds the discard, false force-qualifies the fix.
	ShouldDiscard func(r *Router, location datastructure.LocationFix) bool

	// ShouldReroute grants or vetoes a reroute evaluation. default true.
	ShouldReroute func(r *Router, location datastructure.LocationFix) bool

	// DidArriveAtWaypoint reports arrival and decides whether to advance to
	// the next leg. default true (auto-advance). returning false freezes the
	// leg until AdvanceLeg is called.
	DidArriveAtWaypoint func(r *Router, waypoint datastructure.Waypoint) bool

	// ShouldPreventRerouteAtWaypoint suspends reroute triggering while inside
	// the waypoint's arrival window. default false.
	ShouldPreventRerouteAtWaypoint func(r *Router, waypoint datastructure.Waypoint) bool

	// ShouldDisableBatteryMonitoring is consulted once at construction.
	// default true.
	ShouldDisableBatteryMonitoring func(r *Router) bool

	WillReroute      func(r *Router, location datastructure.LocationFix)
	DidReroute       func(r *Router, route *datastructure.Route, location datastructure.LocationFix, proactive bool)
	DidFailToReroute func(r *Router, err error)

	ProgressUpdated func(r *Router, progress datastructure.RouteProgress,
		location datastructure.QualifiedLocation, rawLocation datastructure.LocationFix)

	PassedVisualInstructionPoint func(r *Router, instruction datastructure.InstructionPoint,
		progress datastructure.RouteProgress)
	PassedSpokenInstructionPoint func(r *Router, instruction datastructure.InstructionPoint,
		progress datastructure.RouteProgress)

	WillArriveAtWaypoint func(r *Router, waypoint datastructure.Waypoint,
		remainingDuration, remainingDistance float64)
}
