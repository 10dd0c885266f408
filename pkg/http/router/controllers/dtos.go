package controllers

import (
	"time"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
)

type sessionWaypoint struct {
	Lat  float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lon  float64 `json:"lon" validate:"required,min=-180,max=180"`
	Name string  `json:"name"`
}

func (w sessionWaypoint) ToWaypoint() datastructure.Waypoint {
	return datastructure.NewWaypoint(w.Lat, w.Lon, w.Name)
}

type createSessionRequest struct {
	Origin      sessionWaypoint   `json:"origin" validate:"required"`
	Destination sessionWaypoint   `json:"destination" validate:"required"`
	Vias        []sessionWaypoint `json:"vias" validate:"omitempty,dive"`
}

// Waypoints flattens the request into the origin-vias-destination order the
// directions client expects.
func (r createSessionRequest) Waypoints() []datastructure.Waypoint {
	waypoints := make([]datastructure.Waypoint, 0, len(r.Vias)+2)
	waypoints = append(waypoints, r.Origin.ToWaypoint())
	for _, via := range r.Vias {
		waypoints = append(waypoints, via.ToWaypoint())
	}
	waypoints = append(waypoints, r.Destination.ToWaypoint())
	return waypoints
}

type locationFixRequest struct {
	Lat      float64   `json:"lat" validate:"min=-90,max=90"`
	Lon      float64   `json:"lon" validate:"min=-180,max=180"`
	Time     time.Time `json:"time" validate:"required"`
	Accuracy float64   `json:"accuracy" validate:"min=0"`
	Course   *float64  `json:"course" validate:"omitempty,min=0,max=360"`
	Speed    *float64  `json:"speed" validate:"omitempty,min=0"`
}

// ToLocationFix maps absent course/speed to the negative sentinel the
// qualifier treats as unobserved.
func (r locationFixRequest) ToLocationFix() datastructure.LocationFix {
	course, speed := -1.0, -1.0
	if r.Course != nil {
		course = *r.Course
	}
	if r.Speed != nil {
		speed = *r.Speed
	}
	return datastructure.NewLocationFix(r.Lat, r.Lon, r.Time, r.Accuracy, course, speed)
}

// fixStreamFrame is one client -> server websocket message: a session to bind
// the connection to and optionally one location fix to feed it.
type fixStreamFrame struct {
	SessionID string              `json:"session_id" validate:"required"`
	Fix       *locationFixRequest `json:"fix" validate:"omitempty"`
}

type waypointResponse struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func NewWaypointResponse(w datastructure.Waypoint) waypointResponse {
	return waypointResponse{
		Name: w.GetName(),
		Lat:  w.GetCoord().GetLat(),
		Lon:  w.GetCoord().GetLon(),
	}
}

type instructionResponse struct {
	Distance float64 `json:"distance"`
	Text     string  `json:"text"`
}

func NewInstructionResponses(points []datastructure.InstructionPoint) []instructionResponse {
	out := make([]instructionResponse, 0, len(points))
	for _, ip := range points {
		out = append(out, instructionResponse{Distance: ip.GetDistance(), Text: ip.GetText()})
	}
	return out
}

type stepResponse struct {
	Name               string                `json:"name"`
	Maneuver           string                `json:"maneuver"`
	Distance           float64               `json:"distance"`
	Duration           float64               `json:"duration"`
	Polyline           string                `json:"polyline"`
	VisualInstructions []instructionResponse `json:"visual_instructions"`
	SpokenInstructions []instructionResponse `json:"spoken_instructions"`
}

func NewStepResponse(step datastructure.Step) stepResponse {
	return stepResponse{
		Name:               step.GetName(),
		Maneuver:           step.GetManeuver(),
		Distance:           step.GetDistance(),
		Duration:           step.GetDuration(),
		Polyline:           geo.PoylineFromCoords(step.GetGeometry()),
		VisualInstructions: NewInstructionResponses(step.GetVisualInstructions()),
		SpokenInstructions: NewInstructionResponses(step.GetSpokenInstructions()),
	}
}

type legResponse struct {
	Distance float64        `json:"distance"`
	Duration float64        `json:"duration"`
	Steps    []stepResponse `json:"steps"`
}

type routeResponse struct {
	Distance  float64            `json:"distance"`
	Duration  float64            `json:"duration"`
	Polyline  string             `json:"polyline"`
	Waypoints []waypointResponse `json:"waypoints"`
	Legs      []legResponse      `json:"legs"`
}

func NewRouteResponse(route *datastructure.Route) routeResponse {
	waypoints := make([]waypointResponse, 0, route.NumberOfWaypoints())
	for _, wp := range route.GetWaypoints() {
		waypoints = append(waypoints, NewWaypointResponse(wp))
	}
	legs := make([]legResponse, 0, route.NumberOfLegs())
	for _, leg := range route.GetLegs() {
		steps := make([]stepResponse, 0, leg.NumberOfSteps())
		for _, step := range leg.GetSteps() {
			steps = append(steps, NewStepResponse(step))
		}
		legs = append(legs, legResponse{
			Distance: leg.GetDistance(),
			Duration: leg.GetDuration(),
			Steps:    steps,
		})
	}
	return routeResponse{
		Distance:  route.GetDistance(),
		Duration:  route.GetDuration(),
		Polyline:  geo.PoylineFromCoords(route.FullGeometry()),
		Waypoints: waypoints,
		Legs:      legs,
	}
}

type sessionResponse struct {
	SessionID                 string        `json:"session_id"`
	State                     string        `json:"state"`
	BatteryMonitoringDisabled bool          `json:"battery_monitoring_disabled"`
	Route                     routeResponse `json:"route"`
}

func NewSessionResponse(sessionID string, route *datastructure.Route,
	batteryMonitoringDisabled bool) sessionResponse {
	return sessionResponse{
		SessionID:                 sessionID,
		State:                     pkg.GetSessionStateName(pkg.NAVIGATING),
		BatteryMonitoringDisabled: batteryMonitoringDisabled,
		Route:                     NewRouteResponse(route),
	}
}

type progressResponse struct {
	State                 string       `json:"state"`
	RerouteState          string       `json:"reroute_state"`
	HeldAtWaypoint        bool         `json:"held_at_waypoint"`
	LegIndex              int          `json:"leg_index"`
	StepIndex             int          `json:"step_index"`
	FractionTraveled      float64      `json:"fraction_traveled"`
	DistanceTraveled      float64      `json:"distance_traveled"`
	DistanceRemaining     float64      `json:"distance_remaining"`
	DurationRemaining     float64      `json:"duration_remaining"`
	LegDistanceRemaining  float64      `json:"leg_distance_remaining"`
	LegDurationRemaining  float64      `json:"leg_duration_remaining"`
	StepDistanceRemaining float64      `json:"step_distance_remaining"`
	SnappedLat            float64      `json:"snapped_lat"`
	SnappedLon            float64      `json:"snapped_lon"`
	CurrentStep           stepResponse `json:"current_step"`
	RemainingPolyline     string       `json:"remaining_polyline"`
	UpcomingInstruction   string       `json:"upcoming_instruction"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

func NewProgressResponse(progress datastructure.RouteProgress, state pkg.SessionState,
	rerouteState pkg.RerouteState, held bool) progressResponse {
	return progressResponse{
		State:                 pkg.GetSessionStateName(state),
		RerouteState:          pkg.GetRerouteStateName(rerouteState),
		HeldAtWaypoint:        held,
		LegIndex:              progress.GetLegIndex(),
		StepIndex:             progress.GetStepIndex(),
		FractionTraveled:      progress.FractionTraveled(),
		DistanceTraveled:      progress.GetDistanceTraveled(),
		DistanceRemaining:     progress.GetDistanceRemaining(),
		DurationRemaining:     progress.GetDurationRemaining(),
		LegDistanceRemaining:  progress.GetLegDistanceRemaining(),
		LegDurationRemaining:  progress.GetLegDurationRemaining(),
		StepDistanceRemaining: progress.GetStepDistanceRemaining(),
		SnappedLat:            progress.GetSnappedCoord().GetLat(),
		SnappedLon:            progress.GetSnappedCoord().GetLon(),
		CurrentStep:           NewStepResponse(progress.CurrentStep()),
		RemainingPolyline:     geo.PoylineFromCoords(remainingGeometry(progress)),
		UpcomingInstruction:   upcomingInstruction(progress),
		UpdatedAt:             progress.GetUpdatedAt(),
	}
}

// remainingGeometry is the route shape still ahead: the snapped position, the
// rest of the current step and every step after it.
func remainingGeometry(progress datastructure.RouteProgress) []geo.Coordinate {
	coords := []geo.Coordinate{progress.GetSnappedCoord()}
	route := progress.GetRoute()
	traveled := progress.GetStepDistanceTraveled()
	for legIdx := progress.GetLegIndex(); legIdx < route.NumberOfLegs(); legIdx++ {
		leg := route.GetLeg(legIdx)
		startStep := 0
		if legIdx == progress.GetLegIndex() {
			startStep = progress.GetStepIndex()
		}
		for stepIdx := startStep; stepIdx < leg.NumberOfSteps(); stepIdx++ {
			step := leg.GetStep(stepIdx)
			geometry := step.GetGeometry()
			for i := 1; i < len(geometry); i++ {
				if legIdx == progress.GetLegIndex() && stepIdx == progress.GetStepIndex() &&
					step.DistanceAlong(i-1, 1.0) <= traveled {
					continue
				}
				coords = append(coords, geometry[i])
			}
		}
	}
	return coords
}

// upcomingInstruction is the next visual banner ahead of the snapped position,
// falling back to the next step's banner at a step boundary.
func upcomingInstruction(progress datastructure.RouteProgress) string {
	traveled := progress.GetStepDistanceTraveled()
	for _, ip := range progress.CurrentStep().GetVisualInstructions() {
		if ip.GetDistance() >= traveled {
			return ip.GetText()
		}
	}
	leg := progress.CurrentLeg()
	if progress.GetStepIndex()+1 < leg.NumberOfSteps() {
		next := leg.GetStep(progress.GetStepIndex() + 1).GetVisualInstructions()
		if len(next) > 0 {
			return next[0].GetText()
		}
	}
	return ""
}

type fixEventBody struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Time time.Time `json:"time"`
}

type instructionEventBody struct {
	Kind     string  `json:"kind"`
	Distance float64 `json:"distance"`
	Text     string  `json:"text"`
}

type waypointEventBody struct {
	Index             int     `json:"index"`
	Name              string  `json:"name"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	Advanced          bool    `json:"advanced,omitempty"`
	RemainingDistance float64 `json:"remaining_distance,omitempty"`
	RemainingDuration float64 `json:"remaining_duration,omitempty"`
}

// eventResponse is the server -> client websocket message. the progress block
// is present whenever the event carries a position, the other blocks depend on
// the kind.
type eventResponse struct {
	Kind string `json:"kind"`

	LegIndex          int     `json:"leg_index"`
	StepIndex         int     `json:"step_index"`
	FractionTraveled  float64 `json:"fraction_traveled"`
	DistanceRemaining float64 `json:"distance_remaining"`
	DurationRemaining float64 `json:"duration_remaining"`
	SnappedLat        float64 `json:"snapped_lat"`
	SnappedLon        float64 `json:"snapped_lon"`

	Fix              *fixEventBody         `json:"fix,omitempty"`
	Instruction      *instructionEventBody `json:"instruction,omitempty"`
	Waypoint         *waypointEventBody    `json:"waypoint,omitempty"`
	Proactive        bool                  `json:"proactive,omitempty"`
	NewRouteDistance float64               `json:"new_route_distance,omitempty"`
	Error            string                `json:"error,omitempty"`
}

func NewEventResponse(ev datastructure.Event) eventResponse {
	resp := eventResponse{Kind: datastructure.GetEventKindName(ev.GetKind())}

	if progress := ev.GetProgress(); progress.GetRoute() != nil {
		resp.LegIndex = progress.GetLegIndex()
		resp.StepIndex = progress.GetStepIndex()
		resp.FractionTraveled = progress.FractionTraveled()
		resp.DistanceRemaining = progress.GetDistanceRemaining()
		resp.DurationRemaining = progress.GetDurationRemaining()
		resp.SnappedLat = progress.GetSnappedCoord().GetLat()
		resp.SnappedLon = progress.GetSnappedCoord().GetLon()
	}

	switch ev.GetKind() {
	case datastructure.EVENT_PROGRESS_UPDATED, datastructure.EVENT_OFF_ROUTE_DETECTED,
		datastructure.EVENT_REROUTE_EVALUATION, datastructure.EVENT_WILL_REROUTE:
		raw := ev.GetRawLocation()
		resp.Fix = &fixEventBody{Lat: raw.Lat(), Lon: raw.Lon(), Time: raw.Time()}
		resp.Proactive = ev.IsProactive()
	case datastructure.EVENT_PASSED_VISUAL_INSTRUCTION, datastructure.EVENT_PASSED_SPOKEN_INSTRUCTION:
		ip := ev.GetInstruction()
		resp.Instruction = &instructionEventBody{
			Kind:     pkg.GetInstructionKindName(ip.GetKind()),
			Distance: ip.GetDistance(),
			Text:     ip.GetText(),
		}
	case datastructure.EVENT_WILL_ARRIVE_AT_WAYPOINT:
		resp.Waypoint = newWaypointEventBody(ev)
		resp.Waypoint.RemainingDistance = ev.GetRemainingDistance()
		resp.Waypoint.RemainingDuration = ev.GetRemainingDuration()
	case datastructure.EVENT_DID_ARRIVE_AT_WAYPOINT:
		resp.Waypoint = newWaypointEventBody(ev)
		resp.Waypoint.Advanced = ev.HasAdvanced()
	case datastructure.EVENT_ARRIVED_AT_DESTINATION:
		resp.Waypoint = newWaypointEventBody(ev)
	case datastructure.EVENT_DID_REROUTE:
		resp.Proactive = ev.IsProactive()
		resp.NewRouteDistance = ev.GetRoute().GetDistance()
	case datastructure.EVENT_REROUTE_FAILED:
		resp.Proactive = ev.IsProactive()
		resp.Error = ev.GetError().Error()
	}
	return resp
}

func newWaypointEventBody(ev datastructure.Event) *waypointEventBody {
	wp := ev.GetWaypoint()
	return &waypointEventBody{
		Index: ev.GetWaypointIndex(),
		Name:  wp.GetName(),
		Lat:   wp.GetCoord().GetLat(),
		Lon:   wp.GetCoord().GetLon(),
	}
}
