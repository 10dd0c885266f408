package datastructure

import (
	"sort"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/util"
)

// Waypoint is one of the stops the route was requested through. waypoint i is
// the start of leg i, waypoint i+1 its destination.
type Waypoint struct {
	coord geo.Coordinate
	name  string
}

func NewWaypoint(lat, lon float64, name string) Waypoint {
	return Waypoint{
		coord: geo.NewCoordinate(lat, lon),
		name:  name,
	}
}

func (w Waypoint) GetCoord() geo.Coordinate {
	return w.coord
}

func (w Waypoint) GetName() string {
	return w.name
}

// InstructionPoint is a pre-rendered announcement anchored at a distance from
// the start of its step. the scheduler fires it once cumulative travel along
// the step reaches that distance.
type InstructionPoint struct {
	kind     pkg.InstructionKind
	distance float64 // trigger distance from step start, meter
	text     string
}

func NewInstructionPoint(kind pkg.InstructionKind, distance float64, text string) InstructionPoint {
	return InstructionPoint{
		kind:     kind,
		distance: distance,
		text:     text,
	}
}

func (ip InstructionPoint) GetKind() pkg.InstructionKind {
	return ip.kind
}

func (ip InstructionPoint) GetDistance() float64 {
	return ip.distance
}

func (ip InstructionPoint) GetText() string {
	return ip.text
}

type Step struct {
	name     string
	maneuver string
	geometry []geo.Coordinate
	distance float64 // meter
	duration float64 // second
	visual   []InstructionPoint
	spoken   []InstructionPoint

	// cumulative[i] = distance from the step start to geometry[i], scaled so
	// cumulative[len-1] == distance
	cumulative []float64
}

// NewStep builds a step from its polyline and instruction triggers. distance and
// duration fall back to the geometric length and zero when non-positive. triggers
// are split per kind and kept ascending by trigger distance.
func NewStep(name, maneuver string, geometry []geo.Coordinate, distance, duration float64,
	instructionPoints []InstructionPoint) Step {
	geomLen := geo.PolylineLengthMeter(geometry)
	if distance <= 0 {
		distance = geomLen
	}
	if duration < 0 {
		duration = 0
	}

	cumulative := make([]float64, len(geometry))
	var acc float64
	for i := 1; i < len(geometry); i++ {
		acc += geo.HaversineDistanceMeter(geometry[i-1], geometry[i])
		cumulative[i] = acc
	}
	if geomLen > 0 && distance != geomLen {
		scale := distance / geomLen
		for i := range cumulative {
			cumulative[i] *= scale
		}
	}

	var visual, spoken []InstructionPoint
	for _, ip := range instructionPoints {
		switch ip.kind {
		case pkg.VISUAL_INSTRUCTION:
			visual = append(visual, ip)
		case pkg.SPOKEN_INSTRUCTION:
			spoken = append(spoken, ip)
		}
	}
	sort.SliceStable(visual, func(i, j int) bool { return visual[i].distance < visual[j].distance })
	sort.SliceStable(spoken, func(i, j int) bool { return spoken[i].distance < spoken[j].distance })

	return Step{
		name:       name,
		maneuver:   maneuver,
		geometry:   geometry,
		distance:   distance,
		duration:   duration,
		visual:     visual,
		spoken:     spoken,
		cumulative: cumulative,
	}
}

func (s Step) GetName() string {
	return s.name
}

func (s Step) GetManeuver() string {
	return s.maneuver
}

func (s Step) GetGeometry() []geo.Coordinate {
	return s.geometry
}

func (s Step) GetDistance() float64 {
	return s.distance
}

func (s Step) GetDuration() float64 {
	return s.duration
}

func (s Step) GetVisualInstructions() []InstructionPoint {
	return s.visual
}

func (s Step) GetSpokenInstructions() []InstructionPoint {
	return s.spoken
}

func (s Step) GetInstructions(kind pkg.InstructionKind) []InstructionPoint {
	if kind == pkg.SPOKEN_INSTRUCTION {
		return s.spoken
	}
	return s.visual
}

func (s Step) NumberOfSegments() int {
	return len(s.geometry) - 1
}

func (s Step) GetSegment(i int) (geo.Coordinate, geo.Coordinate) {
	return s.geometry[i], s.geometry[i+1]
}

// DistanceAlong returns the distance from the step start to the point at
// fraction t of segment segIdx, in the step's declared-distance space.
func (s Step) DistanceAlong(segIdx int, t float64) float64 {
	t = util.Clamp(t, 0.0, 1.0)
	return s.cumulative[segIdx] + t*(s.cumulative[segIdx+1]-s.cumulative[segIdx])
}

// LocateAlong returns the coordinate at the given distance from the step start.
func (s Step) LocateAlong(distance float64) geo.Coordinate {
	distance = util.Clamp(distance, 0, s.distance)
	for i := 1; i < len(s.cumulative); i++ {
		if distance <= s.cumulative[i] {
			segLen := s.cumulative[i] - s.cumulative[i-1]
			if segLen <= 0 {
				return s.geometry[i]
			}
			t := (distance - s.cumulative[i-1]) / segLen
			a, b := s.geometry[i-1], s.geometry[i]
			return geo.NewCoordinate(
				a.GetLat()+t*(b.GetLat()-a.GetLat()),
				a.GetLon()+t*(b.GetLon()-a.GetLon()),
			)
		}
	}
	return s.geometry[len(s.geometry)-1]
}

type Leg struct {
	steps    []Step
	distance float64
	duration float64

	stepStartDistance []float64
	stepStartDuration []float64
}

// NewLeg builds a leg from its steps. distance and duration fall back to the
// sums over the steps when non-positive.
func NewLeg(steps []Step, distance, duration float64) Leg {
	var sumDist, sumDur float64
	stepStartDistance := make([]float64, len(steps))
	stepStartDuration := make([]float64, len(steps))
	for i, s := range steps {
		stepStartDistance[i] = sumDist
		stepStartDuration[i] = sumDur
		sumDist += s.distance
		sumDur += s.duration
	}
	if distance <= 0 {
		distance = sumDist
	}
	if duration <= 0 {
		duration = sumDur
	}
	return Leg{
		steps:             steps,
		distance:          distance,
		duration:          duration,
		stepStartDistance: stepStartDistance,
		stepStartDuration: stepStartDuration,
	}
}

func (l Leg) GetSteps() []Step {
	return l.steps
}

func (l Leg) GetStep(i int) Step {
	return l.steps[i]
}

func (l Leg) NumberOfSteps() int {
	return len(l.steps)
}

func (l Leg) GetDistance() float64 {
	return l.distance
}

func (l Leg) GetDuration() float64 {
	return l.duration
}

// DistanceFromLegStart returns the distance from the leg start to the position
// stepDistanceTraveled meters into step stepIdx.
func (l Leg) DistanceFromLegStart(stepIdx int, stepDistanceTraveled float64) float64 {
	step := l.steps[stepIdx]
	return l.stepStartDistance[stepIdx] + util.Clamp(stepDistanceTraveled, 0, step.distance)
}

// DurationFromLegStart linearly interpolates travel time within the current step.
func (l Leg) DurationFromLegStart(stepIdx int, stepDistanceTraveled float64) float64 {
	step := l.steps[stepIdx]
	var frac float64
	if step.distance > 0 {
		frac = util.Clamp(stepDistanceTraveled/step.distance, 0.0, 1.0)
	}
	return l.stepStartDuration[stepIdx] + frac*step.duration
}

type Route struct {
	legs      []Leg
	waypoints []Waypoint
	distance  float64
	duration  float64

	legStartDistance []float64
	legStartDuration []float64
}

// NewRoute validates the whole route shape and precomputes the per-leg offset
// tables. a malformed route never becomes a *Route.
func NewRoute(legs []Leg, waypoints []Waypoint) (*Route, error) {
	if len(legs) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrMalformedRoute, "route has zero legs")
	}
	if len(waypoints) != len(legs)+1 {
		return nil, util.WrapErrorf(nil, util.ErrMalformedRoute,
			"route with %d legs must have %d waypoints, got %d", len(legs), len(legs)+1, len(waypoints))
	}

	var sumDist, sumDur float64
	legStartDistance := make([]float64, len(legs))
	legStartDuration := make([]float64, len(legs))
	for li, leg := range legs {
		if len(leg.steps) == 0 {
			return nil, util.WrapErrorf(nil, util.ErrMalformedRoute, "leg %d has zero steps", li)
		}
		for si, step := range leg.steps {
			if len(step.geometry) < 2 {
				return nil, util.WrapErrorf(nil, util.ErrMalformedRoute,
					"leg %d step %d has %d geometry points", li, si, len(step.geometry))
			}
			for _, ip := range append(append([]InstructionPoint{}, step.visual...), step.spoken...) {
				if ip.distance < 0 || ip.distance > step.distance+pkg.STEP_COMPLETION_EPS {
					return nil, util.WrapErrorf(nil, util.ErrMalformedRoute,
						"leg %d step %d instruction trigger at %.1fm outside step of %.1fm",
						li, si, ip.distance, step.distance)
				}
			}
		}
		legStartDistance[li] = sumDist
		legStartDuration[li] = sumDur
		sumDist += leg.distance
		sumDur += leg.duration
	}

	return &Route{
		legs:             legs,
		waypoints:        waypoints,
		distance:         sumDist,
		duration:         sumDur,
		legStartDistance: legStartDistance,
		legStartDuration: legStartDuration,
	}, nil
}

func (r *Route) GetLegs() []Leg {
	return r.legs
}

func (r *Route) GetLeg(i int) Leg {
	return r.legs[i]
}

func (r *Route) NumberOfLegs() int {
	return len(r.legs)
}

func (r *Route) GetWaypoints() []Waypoint {
	return r.waypoints
}

func (r *Route) GetWaypoint(i int) Waypoint {
	return r.waypoints[i]
}

func (r *Route) NumberOfWaypoints() int {
	return len(r.waypoints)
}

func (r *Route) GetDistance() float64 {
	return r.distance
}

func (r *Route) GetDuration() float64 {
	return r.duration
}

// DistanceFromRouteStart returns the distance from the route start to the
// position stepDistanceTraveled meters into (legIdx, stepIdx).
func (r *Route) DistanceFromRouteStart(legIdx, stepIdx int, stepDistanceTraveled float64) float64 {
	return r.legStartDistance[legIdx] + r.legs[legIdx].DistanceFromLegStart(stepIdx, stepDistanceTraveled)
}

func (r *Route) DurationFromRouteStart(legIdx, stepIdx int, stepDistanceTraveled float64) float64 {
	return r.legStartDuration[legIdx] + r.legs[legIdx].DurationFromLegStart(stepIdx, stepDistanceTraveled)
}

// RemainingWaypoints returns the waypoints not yet visited while traveling leg
// legIdx, i.e. the current leg's destination and everything after it.
func (r *Route) RemainingWaypoints(legIdx int) []Waypoint {
	return r.waypoints[legIdx+1:]
}

// FullGeometry concatenates every step polyline, dropping duplicated join points.
func (r *Route) FullGeometry() []geo.Coordinate {
	var coords []geo.Coordinate
	for _, leg := range r.legs {
		for _, step := range leg.steps {
			for _, c := range step.geometry {
				if n := len(coords); n > 0 && coords[n-1] == c {
					continue
				}
				coords = append(coords, c)
			}
		}
	}
	return coords
}
