package navigator

import (
	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
)

// waypointArrivalManager watches the distance to the current leg's terminal
// waypoint. it decides, it never mutates: leg advancement is applied by the
// router through the tracker according to the returned decision.
type waypointArrivalManager struct {
	cfg Config

	inApproachBand  bool
	suppressReroute bool
	arrivalFired    bool
	held            bool
}

type arrivalDecision struct {
	waypoint      datastructure.Waypoint
	waypointIndex int

	approaching       bool
	remainingDistance float64
	remainingDuration float64

	fireArrival    bool
	advanced       bool
	completedRoute bool
}

func newWaypointArrivalManager(cfg Config) *waypointArrivalManager {
	return &waypointArrivalManager{cfg: cfg}
}

// reset clears the window state after a leg advancement or a reroute, when the
// terminal waypoint this manager was watching is no longer the active one.
func (m *waypointArrivalManager) reset() {
	m.inApproachBand = false
	m.suppressReroute = false
	m.arrivalFired = false
	m.held = false
}

func (m *waypointArrivalManager) isHeld() bool {
	return m.held
}

func (m *waypointArrivalManager) rerouteSuppressed() bool {
	return m.suppressReroute
}

// evaluate runs the approach/arrival protocol for one progress update.
// didArrive and preventReroute are the policy verdicts (defaults already
// applied by the caller). preventReroute is consulted once, on entering the
// approach band; its verdict holds for the whole arrival window.
func (m *waypointArrivalManager) evaluate(progress datastructure.RouteProgress,
	didArrive func(datastructure.Waypoint) bool,
	preventReroute func(datastructure.Waypoint) bool) arrivalDecision {
	wp := progress.CurrentTerminalWaypoint()
	dec := arrivalDecision{
		waypoint:      wp,
		waypointIndex: progress.GetLegIndex() + 1,
	}

	legRemaining := progress.GetLegDistanceRemaining()
	inBand := legRemaining <= m.cfg.ApproachDistance
	if inBand && !m.inApproachBand {
		m.inApproachBand = true
		m.suppressReroute = preventReroute(wp)
	} else if !inBand && m.inApproachBand && !m.held {
		// drifted back out of the band without arriving
		m.inApproachBand = false
		m.suppressReroute = false
		m.arrivalFired = false
	}

	if inBand {
		dec.approaching = true
		dec.remainingDistance = legRemaining
		dec.remainingDuration = progress.GetLegDurationRemaining()
	}

	lastStep := progress.GetStepIndex() == progress.CurrentLeg().NumberOfSteps()-1
	crossedFinalStep := lastStep && progress.GetStepDistanceRemaining() <= pkg.STEP_COMPLETION_EPS
	if legRemaining > m.cfg.ArrivalRadius && !crossedFinalStep {
		return dec
	}

	if m.arrivalFired {
		return dec
	}
	m.arrivalFired = true
	dec.fireArrival = true

	if !didArrive(wp) {
		m.held = true
		return dec
	}
	if progress.IsFinalLeg() {
		dec.completedRoute = true
		return dec
	}
	dec.advanced = true
	return dec
}
