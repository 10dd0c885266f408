package datastructure

import (
	"github.com/lintang-b-s/naviguide/pkg"
)

// enum of event_kind. every notification the router produces goes through one
// ordered sink as an Event of one of these kinds.
type EventKind uint8

const (
	EVENT_PROGRESS_UPDATED EventKind = iota
	EVENT_OFF_ROUTE_DETECTED
	EVENT_REROUTE_EVALUATION
	EVENT_WILL_REROUTE
	EVENT_DID_REROUTE
	EVENT_REROUTE_FAILED
	EVENT_PASSED_VISUAL_INSTRUCTION
	EVENT_PASSED_SPOKEN_INSTRUCTION
	EVENT_WILL_ARRIVE_AT_WAYPOINT
	EVENT_DID_ARRIVE_AT_WAYPOINT
	EVENT_ARRIVED_AT_DESTINATION
)

func GetEventKindName(kind EventKind) string {
	switch kind {
	case EVENT_PROGRESS_UPDATED:
		return "progress_updated"
	case EVENT_OFF_ROUTE_DETECTED:
		return "off_route_detected"
	case EVENT_REROUTE_EVALUATION:
		return "reroute_evaluation"
	case EVENT_WILL_REROUTE:
		return "will_reroute"
	case EVENT_DID_REROUTE:
		return "did_reroute"
	case EVENT_REROUTE_FAILED:
		return "reroute_failed"
	case EVENT_PASSED_VISUAL_INSTRUCTION:
		return "passed_visual_instruction"
	case EVENT_PASSED_SPOKEN_INSTRUCTION:
		return "passed_spoken_instruction"
	case EVENT_WILL_ARRIVE_AT_WAYPOINT:
		return "will_arrive_at_waypoint"
	case EVENT_DID_ARRIVE_AT_WAYPOINT:
		return "did_arrive_at_waypoint"
	case EVENT_ARRIVED_AT_DESTINATION:
		return "arrived_at_destination"
	default:
		return "unknown"
	}
}

// Event is one notification out of the router pipeline. only the fields that
// make sense for its kind are populated, see the constructors.
type Event struct {
	kind EventKind

	progress    RouteProgress
	rawLocation LocationFix
	location    QualifiedLocation
	instruction InstructionPoint
	waypoint    Waypoint

	waypointIndex     int
	route             *Route
	proactive         bool
	advanced          bool
	err               error
	remainingDistance float64
	remainingDuration float64
}

func NewProgressUpdatedEvent(progress RouteProgress, location QualifiedLocation,
	raw LocationFix) Event {
	return Event{
		kind:        EVENT_PROGRESS_UPDATED,
		progress:    progress,
		location:    location,
		rawLocation: raw,
	}
}

func NewOffRouteDetectedEvent(progress RouteProgress, raw LocationFix) Event {
	return Event{
		kind:        EVENT_OFF_ROUTE_DETECTED,
		progress:    progress,
		rawLocation: raw,
	}
}

func NewRerouteEvaluationEvent(progress RouteProgress, raw LocationFix, proactive bool) Event {
	return Event{
		kind:        EVENT_REROUTE_EVALUATION,
		progress:    progress,
		rawLocation: raw,
		proactive:   proactive,
	}
}

func NewWillRerouteEvent(raw LocationFix, proactive bool) Event {
	return Event{
		kind:        EVENT_WILL_REROUTE,
		rawLocation: raw,
		proactive:   proactive,
	}
}

func NewDidRerouteEvent(route *Route, progress RouteProgress, raw LocationFix,
	proactive bool) Event {
	return Event{
		kind:        EVENT_DID_REROUTE,
		route:       route,
		progress:    progress,
		rawLocation: raw,
		proactive:   proactive,
	}
}

func NewRerouteFailedEvent(err error, proactive bool) Event {
	return Event{
		kind:      EVENT_REROUTE_FAILED,
		err:       err,
		proactive: proactive,
	}
}

func NewPassedInstructionEvent(kind pkg.InstructionKind, instruction InstructionPoint,
	progress RouteProgress) Event {
	eventKind := EVENT_PASSED_VISUAL_INSTRUCTION
	if kind == pkg.SPOKEN_INSTRUCTION {
		eventKind = EVENT_PASSED_SPOKEN_INSTRUCTION
	}
	return Event{
		kind:        eventKind,
		instruction: instruction,
		progress:    progress,
	}
}

func NewWillArriveAtWaypointEvent(waypoint Waypoint, waypointIndex int,
	remainingDistance, remainingDuration float64, progress RouteProgress) Event {
	return Event{
		kind:              EVENT_WILL_ARRIVE_AT_WAYPOINT,
		waypoint:          waypoint,
		waypointIndex:     waypointIndex,
		remainingDistance: remainingDistance,
		remainingDuration: remainingDuration,
		progress:          progress,
	}
}

func NewDidArriveAtWaypointEvent(waypoint Waypoint, waypointIndex int, advanced bool,
	progress RouteProgress) Event {
	return Event{
		kind:          EVENT_DID_ARRIVE_AT_WAYPOINT,
		waypoint:      waypoint,
		waypointIndex: waypointIndex,
		advanced:      advanced,
		progress:      progress,
	}
}

func NewArrivedAtDestinationEvent(waypoint Waypoint, waypointIndex int,
	progress RouteProgress) Event {
	return Event{
		kind:          EVENT_ARRIVED_AT_DESTINATION,
		waypoint:      waypoint,
		waypointIndex: waypointIndex,
		progress:      progress,
	}
}

func (e Event) GetKind() EventKind {
	return e.kind
}

func (e Event) GetProgress() RouteProgress {
	return e.progress
}

func (e Event) GetRawLocation() LocationFix {
	return e.rawLocation
}

func (e Event) GetLocation() QualifiedLocation {
	return e.location
}

func (e Event) GetInstruction() InstructionPoint {
	return e.instruction
}

func (e Event) GetWaypoint() Waypoint {
	return e.waypoint
}

func (e Event) GetWaypointIndex() int {
	return e.waypointIndex
}

func (e Event) GetRoute() *Route {
	return e.route
}

func (e Event) IsProactive() bool {
	return e.proactive
}

func (e Event) HasAdvanced() bool {
	return e.advanced
}

func (e Event) GetError() error {
	return e.err
}

func (e Event) GetRemainingDistance() float64 {
	return e.remainingDistance
}

func (e Event) GetRemainingDuration() float64 {
	return e.remainingDuration
}
