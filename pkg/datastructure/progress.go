package datastructure

import (
	"time"

	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/util"
)

// RouteProgress is the position of the traveler along the active route plus
// every derived remaining-distance/-duration figure. the derived fields are
// recomputed atomically by SetPosition, so a progress value is always
// internally consistent.
type RouteProgress struct {
	route *Route

	legIndex             int
	stepIndex            int
	stepDistanceTraveled float64

	distanceTraveled      float64
	distanceRemaining     float64
	durationRemaining     float64
	legDistanceRemaining  float64
	legDurationRemaining  float64
	stepDistanceRemaining float64

	snapped   geo.Coordinate
	updatedAt time.Time
}

// NewRouteProgress anchors progress at the very start of route.
func NewRouteProgress(route *Route) RouteProgress {
	p := RouteProgress{route: route}
	start := route.GetLeg(0).GetStep(0).GetGeometry()[0]
	p.SetPosition(0, 0, 0, start, time.Time{})
	return p
}

// SetPosition moves progress to stepDistanceTraveled meters into
// (legIndex, stepIndex) and recomputes all derived fields.
func (p *RouteProgress) SetPosition(legIndex, stepIndex int, stepDistanceTraveled float64,
	snapped geo.Coordinate, at time.Time) {
	leg := p.route.GetLeg(legIndex)
	step := leg.GetStep(stepIndex)
	stepDistanceTraveled = util.Clamp(stepDistanceTraveled, 0, step.GetDistance())

	p.legIndex = legIndex
	p.stepIndex = stepIndex
	p.stepDistanceTraveled = stepDistanceTraveled
	p.snapped = snapped
	p.updatedAt = at

	p.stepDistanceRemaining = step.GetDistance() - stepDistanceTraveled
	p.legDistanceRemaining = leg.GetDistance() - leg.DistanceFromLegStart(stepIndex, stepDistanceTraveled)
	p.legDurationRemaining = leg.GetDuration() - leg.DurationFromLegStart(stepIndex, stepDistanceTraveled)
	p.distanceTraveled = p.route.DistanceFromRouteStart(legIndex, stepIndex, stepDistanceTraveled)
	p.distanceRemaining = p.route.GetDistance() - p.distanceTraveled
	p.durationRemaining = p.route.GetDuration() - p.route.DurationFromRouteStart(legIndex, stepIndex, stepDistanceTraveled)

	if p.legDistanceRemaining < 0 {
		p.legDistanceRemaining = 0
	}
	if p.legDurationRemaining < 0 {
		p.legDurationRemaining = 0
	}
	if p.distanceRemaining < 0 {
		p.distanceRemaining = 0
	}
	if p.durationRemaining < 0 {
		p.durationRemaining = 0
	}
}

func (p RouteProgress) GetRoute() *Route {
	return p.route
}

func (p RouteProgress) GetLegIndex() int {
	return p.legIndex
}

func (p RouteProgress) GetStepIndex() int {
	return p.stepIndex
}

func (p RouteProgress) GetStepDistanceTraveled() float64 {
	return p.stepDistanceTraveled
}

func (p RouteProgress) GetDistanceTraveled() float64 {
	return p.distanceTraveled
}

func (p RouteProgress) GetDistanceRemaining() float64 {
	return p.distanceRemaining
}

func (p RouteProgress) GetDurationRemaining() float64 {
	return p.durationRemaining
}

func (p RouteProgress) GetLegDistanceRemaining() float64 {
	return p.legDistanceRemaining
}

func (p RouteProgress) GetLegDurationRemaining() float64 {
	return p.legDurationRemaining
}

func (p RouteProgress) GetStepDistanceRemaining() float64 {
	return p.stepDistanceRemaining
}

func (p RouteProgress) GetSnappedCoord() geo.Coordinate {
	return p.snapped
}

func (p RouteProgress) GetUpdatedAt() time.Time {
	return p.updatedAt
}

func (p RouteProgress) FractionTraveled() float64 {
	if p.route.GetDistance() <= 0 {
		return 0
	}
	return util.Clamp(p.distanceTraveled/p.route.GetDistance(), 0.0, 1.0)
}

func (p RouteProgress) CurrentLeg() Leg {
	return p.route.GetLeg(p.legIndex)
}

func (p RouteProgress) CurrentStep() Step {
	return p.CurrentLeg().GetStep(p.stepIndex)
}

func (p RouteProgress) IsFinalLeg() bool {
	return p.legIndex == p.route.NumberOfLegs()-1
}

// CurrentTerminalWaypoint is the destination waypoint of the current leg.
func (p RouteProgress) CurrentTerminalWaypoint() Waypoint {
	return p.route.GetWaypoint(p.legIndex + 1)
}
