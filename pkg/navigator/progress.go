package navigator

import (
	"math"
	"time"

	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/spatialindex"
)

// padding for the r-tree leaves, km. queries carry their own radius, the
// padding only has to absorb the bounding-box vs geodesic segment error.
const indexLeafPaddingKM = 0.05

// progressTracker owns the authoritative RouteProgress. it is the single
// mutator of the model, everything else reads value snapshots. step crossing
// happens here, leg crossing is the waypoint arrival manager's call.
type progressTracker struct {
	cfg      Config
	route    *datastructure.Route
	index    *spatialindex.Rtree
	progress datastructure.RouteProgress

	offRouteStreak int
}

type advanceResult struct {
	progress       datastructure.RouteProgress
	completedSteps []datastructure.Step
	perpDistance   float64
	offRoute       bool
}

func newProgressTracker(cfg Config, route *datastructure.Route) *progressTracker {
	t := &progressTracker{cfg: cfg}
	t.install(route)
	return t
}

func (t *progressTracker) install(route *datastructure.Route) {
	t.route = route
	t.index = spatialindex.NewRtree()
	t.index.Build(route, indexLeafPaddingKM)
	t.progress = datastructure.NewRouteProgress(route)
	t.offRouteStreak = 0
}

// setRoute swaps in a recalculated route. the old progress model is entirely
// superseded by a fresh one anchored at the start of the new route.
func (t *progressTracker) setRoute(route *datastructure.Route, at time.Time) {
	t.install(route)
	start := route.GetLeg(0).GetStep(0).GetGeometry()[0]
	t.progress.SetPosition(0, 0, 0, start, at)
}

// advance projects loc onto the current leg, moving stepIndex forward when the
// nearest on-route position sits on a later step. the off-route judgment rides
// along: perpendicular distance over the dynamic threshold for OffRouteStreak
// consecutive updates.
func (t *progressTracker) advance(loc datastructure.QualifiedLocation) advanceResult {
	fix := loc.Fix()
	legIdx := t.progress.GetLegIndex()
	prevStepIdx := t.progress.GetStepIndex()
	leg := t.route.GetLeg(legIdx)

	proj, found := t.bestProjection(leg, legIdx, prevStepIdx, fix.Coord())
	if !found {
		proj = projectOntoStep(leg.GetStep(prevStepIdx), prevStepIdx, fix.Coord())
	}

	var completed []datastructure.Step
	for s := prevStepIdx; s < proj.stepIndex; s++ {
		completed = append(completed, leg.GetStep(s))
	}

	t.progress.SetPosition(legIdx, proj.stepIndex, proj.distAlong, proj.coord, fix.Time())

	if proj.perp > t.offRouteThreshold(fix) {
		t.offRouteStreak++
	} else {
		t.offRouteStreak = 0
	}

	return advanceResult{
		progress:       t.progress,
		completedSteps: completed,
		perpDistance:   proj.perp,
		offRoute:       t.offRouteStreak >= t.cfg.OffRouteStreak,
	}
}

// advanceLeg moves to the next leg, re-anchored at its first step.
func (t *progressTracker) advanceLeg(at time.Time) {
	next := t.progress.GetLegIndex() + 1
	start := t.route.GetLeg(next).GetStep(0).GetGeometry()[0]
	t.progress.SetPosition(next, 0, 0, start, at)
	t.offRouteStreak = 0
}

func (t *progressTracker) snapshot() datastructure.RouteProgress {
	return t.progress
}

func (t *progressTracker) remainingWaypoints() []datastructure.Waypoint {
	return t.route.RemainingWaypoints(t.progress.GetLegIndex())
}

// offRouteThreshold scales with fix accuracy and speed: a noisy fix or a fast
// vehicle gets more slack before being called off-route.
func (t *progressTracker) offRouteThreshold(fix datastructure.LocationFix) float64 {
	threshold := fix.Accuracy() * t.cfg.OffRouteAccuracyFactor
	if fix.HasSpeed() {
		threshold += fix.Speed() * t.cfg.OffRouteSpeedGrace
	}
	if threshold < t.cfg.MinOffRouteRadius {
		threshold = t.cfg.MinOffRouteRadius
	}
	return threshold
}

type projection struct {
	stepIndex int
	coord     geo.Coordinate
	distAlong float64
	perp      float64
}

// bestProjection picks the nearest candidate segment on the current step or a
// later step of the current leg. later steps carry StepSwitchBias as penalty so
// the position does not flap across step boundaries where polylines run close.
func (t *progressTracker) bestProjection(leg datastructure.Leg, legIdx, stepIdx int,
	coord geo.Coordinate) (projection, bool) {
	refs := t.index.SearchWithinRadius(coord.GetLat(), coord.GetLon(), t.cfg.SegmentSearchRadius/1000.0)

	var best projection
	bestScore := math.Inf(1)
	found := false
	for _, ref := range refs {
		if ref.GetLegIndex() != legIdx || ref.GetStepIndex() < stepIdx {
			continue
		}
		step := leg.GetStep(ref.GetStepIndex())
		from, to := step.GetSegment(ref.GetSegmentIndex())
		projected, frac := geo.ProjectPointToLineParam(from, to, coord)
		perp := geo.HaversineDistanceMeter(coord, projected)

		score := perp
		if ref.GetStepIndex() > stepIdx {
			score += t.cfg.StepSwitchBias
		}
		if score < bestScore {
			bestScore = score
			best = projection{
				stepIndex: ref.GetStepIndex(),
				coord:     projected,
				distAlong: step.DistanceAlong(ref.GetSegmentIndex(), frac),
				perp:      perp,
			}
			found = true
		}
	}
	return best, found
}

// projectOntoStep is the fallback linear scan used when the index query comes
// back empty, which means the fix is far from the entire route.
func projectOntoStep(step datastructure.Step, stepIdx int, coord geo.Coordinate) projection {
	best := projection{stepIndex: stepIdx}
	bestPerp := math.Inf(1)
	for seg := 0; seg < step.NumberOfSegments(); seg++ {
		from, to := step.GetSegment(seg)
		projected, frac := geo.ProjectPointToLineParam(from, to, coord)
		perp := geo.HaversineDistanceMeter(coord, projected)
		if perp < bestPerp {
			bestPerp = perp
			best.coord = projected
			best.distAlong = step.DistanceAlong(seg, frac)
			best.perp = perp
		}
	}
	return best
}
