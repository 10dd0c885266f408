package navigator

import (
	"context"
	"sync"
	"time"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/util"
	"go.uber.org/zap"
)

// EventSink observes the full ordered notification stream of a router. events
// of one pipeline cycle arrive in order and cycles never overlap.
type EventSink func(event datastructure.Event)

// pipelineItem is one unit of pipeline work: a raw fix, a recalculation
// completion, or a caller command. exactly one field is set.
type pipelineItem struct {
	fix            *datastructure.LocationFix
	recalc         *rerouteResult
	advanceLeg     bool
	requestReroute bool
}

// published is the read-side snapshot, refreshed after every pipeline item so
// readers never touch drainer-owned state.
type published struct {
	progress     datastructure.RouteProgress
	state        pkg.SessionState
	rerouteState pkg.RerouteState
	held         bool
	hasFix       bool
}

// Router drives one navigation session: it consumes raw location fixes and a
// precomputed route and turns them into progress updates, instruction timing,
// waypoint arrivals and reroutes, with the Policy hooks steering the defaults.
//
// every mutation flows through a serial pipeline: whoever enqueues onto an
// idle router drains the queue on its own goroutine; everyone else (reentrant
// policy callbacks included) just appends. recalculation completions travel
// the same queue, so the pipeline is the only writer of tracker/arbiter state
// and no component-level locking exists.
type Router struct {
	log     *zap.Logger
	cfg     Config
	fetcher RouteFetcher
	sink    EventSink

	ctx    context.Context
	cancel context.CancelFunc

	// drainer-owned, never touched under mu
	qualifier *locationQualifier
	tracker   *progressTracker
	scheduler *instructionScheduler
	arrival   *waypointArrivalManager
	arbiter   *rerouteArbiter
	state     pkg.SessionState
	lastFix   *datastructure.LocationFix

	batteryMonitoringDisabled bool

	mu      sync.Mutex
	policy  Policy
	pending []pipelineItem
	running bool
	closed  bool
	pub     published
}

func NewRouter(log *zap.Logger, cfg Config, route *datastructure.Route,
	fetcher RouteFetcher, policy Policy, sink EventSink) (*Router, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if route == nil {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "route is required")
	}
	if fetcher == nil {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "route fetcher is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		log:       log,
		cfg:       cfg,
		fetcher:   fetcher,
		sink:      sink,
		ctx:       ctx,
		cancel:    cancel,
		qualifier: newLocationQualifier(cfg),
		tracker:   newProgressTracker(cfg, route),
		scheduler: newInstructionScheduler(),
		arrival:   newWaypointArrivalManager(cfg),
		arbiter:   newRerouteArbiter(cfg),
		state:     pkg.NAVIGATING,
		policy:    policy,
	}
	r.pub = published{
		progress:     r.tracker.snapshot(),
		state:        pkg.NAVIGATING,
		rerouteState: pkg.REROUTE_IDLE,
	}

	r.batteryMonitoringDisabled = true
	if policy.ShouldDisableBatteryMonitoring != nil {
		r.batteryMonitoringDisabled = policy.ShouldDisableBatteryMonitoring(r)
	}

	log.Info("navigation router created",
		zap.Int("legs", route.NumberOfLegs()),
		zap.Float64("distance_meter", route.GetDistance()),
		zap.Float64("duration_second", route.GetDuration()))
	return r, nil
}

// Consume feeds one raw location fix into the pipeline. the call returns once
// the fix and everything queued behind it is processed, or immediately when
// another drain is already running. calling Consume from inside a policy
// callback is safe: the fix is queued and picked up by the active drain.
func (r *Router) Consume(fix datastructure.LocationFix) error {
	return r.enqueue(pipelineItem{fix: &fix})
}

// AdvanceLeg advances to the next leg: after a held arrival (policy returned
// false from DidArriveAtWaypoint) or to skip the rest of the current leg. on
// the final leg it completes the route when held at the final waypoint and
// fails otherwise, since no leg remains.
func (r *Router) AdvanceLeg() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return util.WrapErrorf(nil, util.ErrRouterClosed, "advance leg")
	}
	if r.pub.state == pkg.ARRIVED {
		r.mu.Unlock()
		return util.WrapErrorf(nil, util.ErrInvalidLegAdvancement, "route already completed")
	}
	if r.pub.progress.IsFinalLeg() && !r.pub.held {
		r.mu.Unlock()
		return util.WrapErrorf(nil, util.ErrInvalidLegAdvancement, "already on the final leg")
	}
	r.mu.Unlock()
	return r.enqueue(pipelineItem{advanceLeg: true})
}

// RequestReroute asks for a proactive recalculation from the last known
// position. it funnels through the same arbiter as reactive reroutes and is
// ignored while one is already in flight.
func (r *Router) RequestReroute() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return util.WrapErrorf(nil, util.ErrRouterClosed, "request reroute")
	}
	if !r.pub.hasFix {
		r.mu.Unlock()
		return util.WrapErrorf(nil, util.ErrBadParamInput, "no location consumed yet")
	}
	r.mu.Unlock()
	return r.enqueue(pipelineItem{requestReroute: true})
}

// Close tears the session down. queued work is dropped and an in-flight
// recalculation result is discarded on arrival. Close is idempotent.
func (r *Router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.pending = nil
	r.pub.state = pkg.CLOSED
	r.mu.Unlock()
	r.cancel()
	r.log.Info("navigation router closed")
	return nil
}

// SetPolicy replaces the override policy. the new policy applies from the
// next pipeline item on.
func (r *Router) SetPolicy(policy Policy) {
	r.mu.Lock()
	r.policy = policy
	r.mu.Unlock()
}

// Progress returns the latest published progress snapshot.
func (r *Router) Progress() datastructure.RouteProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pub.progress
}

func (r *Router) State() pkg.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pub.state
}

func (r *Router) RerouteStatus() pkg.RerouteState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pub.rerouteState
}

func (r *Router) CurrentRoute() *datastructure.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pub.progress.GetRoute()
}

func (r *Router) IsHeldAtWaypoint() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pub.held
}

func (r *Router) BatteryMonitoringDisabled() bool {
	return r.batteryMonitoringDisabled
}

// enqueue appends item and, when no drain is active, becomes the drainer and
// works the queue to empty. the drain alternates between a locked window (pop
// item, publish snapshot) and unlocked work (process, dispatch), so callbacks
// run without the lock and may call back into the router freely.
func (r *Router) enqueue(item pipelineItem) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return util.WrapErrorf(nil, util.ErrRouterClosed, "router is closed")
	}
	r.pending = append(r.pending, item)
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	for !r.closed && len(r.pending) > 0 {
		it := r.pending[0]
		r.pending = r.pending[1:]
		pol := r.policy
		r.mu.Unlock()

		events := r.process(it, pol)

		r.mu.Lock()
		r.publishLocked()
		r.mu.Unlock()

		r.dispatch(events, pol)

		r.mu.Lock()
	}
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *Router) publishLocked() {
	r.pub.progress = r.tracker.snapshot()
	r.pub.rerouteState = r.arbiter.getState()
	r.pub.held = r.arrival.isHeld()
	r.pub.hasFix = r.lastFix != nil
	if r.closed {
		r.pub.state = pkg.CLOSED
	} else {
		r.pub.state = r.state
	}
}

func (r *Router) process(it pipelineItem, pol Policy) []datastructure.Event {
	switch {
	case it.fix != nil:
		return r.processFix(*it.fix, pol)
	case it.recalc != nil:
		return r.processRecalculation(it.recalc)
	case it.advanceLeg:
		return r.processAdvanceLeg()
	case it.requestReroute:
		return r.processRequestReroute(pol)
	}
	return nil
}

// processFix runs the full qualification -> progress -> instruction ->
// waypoint -> reroute-trigger pipeline for one fix and returns the cycle's
// events in that order.
func (r *Router) processFix(fix datastructure.LocationFix, pol Policy) []datastructure.Event {
	if r.state != pkg.NAVIGATING {
		return nil
	}

	if reason := r.qualifier.qualify(fix); reason != nil {
		forced := pol.ShouldDiscard != nil && !pol.ShouldDiscard(r, fix)
		if !forced {
			r.log.Debug("location fix discarded",
				zap.Float64("lat", fix.Lat()),
				zap.Float64("lon", fix.Lon()),
				zap.Error(reason))
			return nil
		}
	}
	r.qualifier.accept(fix)
	r.lastFix = &fix
	loc := datastructure.NewQualifiedLocation(fix)

	res := r.tracker.advance(loc)
	events := make([]datastructure.Event, 0, 4)
	events = append(events, datastructure.NewProgressUpdatedEvent(res.progress, loc, fix))

	for _, step := range res.completedSteps {
		for _, ip := range r.scheduler.collectCompleted(step) {
			events = append(events, datastructure.NewPassedInstructionEvent(ip.GetKind(), ip, res.progress))
		}
		r.scheduler.reset()
	}
	for _, ip := range r.scheduler.collect(res.progress.CurrentStep(), res.progress.GetStepDistanceTraveled()) {
		events = append(events, datastructure.NewPassedInstructionEvent(ip.GetKind(), ip, res.progress))
	}

	didArrive := func(wp datastructure.Waypoint) bool {
		if pol.DidArriveAtWaypoint != nil {
			return pol.DidArriveAtWaypoint(r, wp)
		}
		return true
	}
	preventReroute := func(wp datastructure.Waypoint) bool {
		if pol.ShouldPreventRerouteAtWaypoint != nil {
			return pol.ShouldPreventRerouteAtWaypoint(r, wp)
		}
		return false
	}
	dec := r.arrival.evaluate(res.progress, didArrive, preventReroute)
	if dec.approaching {
		events = append(events, datastructure.NewWillArriveAtWaypointEvent(dec.waypoint,
			dec.waypointIndex, dec.remainingDistance, dec.remainingDuration, res.progress))
	}
	if dec.fireArrival {
		switch {
		case dec.completedRoute:
			r.state = pkg.ARRIVED
			final := r.tracker.snapshot()
			events = append(events,
				datastructure.NewDidArriveAtWaypointEvent(dec.waypoint, dec.waypointIndex, false, final),
				datastructure.NewArrivedAtDestinationEvent(dec.waypoint, dec.waypointIndex, final))
			r.log.Info("arrived at final destination", zap.String("waypoint", dec.waypoint.GetName()))
			return events
		case dec.advanced:
			r.tracker.advanceLeg(fix.Time())
			r.scheduler.reset()
			r.arrival.reset()
			events = append(events, datastructure.NewDidArriveAtWaypointEvent(dec.waypoint,
				dec.waypointIndex, true, r.tracker.snapshot()))
		default:
			// held: advancement deferred to AdvanceLeg
			events = append(events, datastructure.NewDidArriveAtWaypointEvent(dec.waypoint,
				dec.waypointIndex, false, res.progress))
		}
	}

	if res.offRoute {
		events = append(events, datastructure.NewOffRouteDetectedEvent(r.tracker.snapshot(), fix))
		if !r.arrival.rerouteSuppressed() {
			events = append(events, r.startReroute(fix, false, pol)...)
		}
	}
	return events
}

// startReroute runs IDLE -> PENDING_PERMISSION synchronously and, when the
// policy grants it, moves to RECALCULATING and launches the recalculation
// goroutine. the goroutine only talks back through the pipeline queue.
func (r *Router) startReroute(fix datastructure.LocationFix, proactive bool, pol Policy) []datastructure.Event {
	if !r.arbiter.canTrigger(time.Now()) {
		return nil
	}
	r.arbiter.toPendingPermission()
	events := []datastructure.Event{datastructure.NewRerouteEvaluationEvent(r.tracker.snapshot(), fix, proactive)}

	if pol.ShouldReroute != nil && !pol.ShouldReroute(r, fix) {
		r.arbiter.decline()
		return events
	}

	events = append(events, datastructure.NewWillRerouteEvent(fix, proactive))
	seq := r.arbiter.beginRecalculation(proactive)
	remaining := r.tracker.remainingWaypoints()
	go r.runRecalculation(seq, fix, remaining, proactive)
	r.log.Info("route recalculation started",
		zap.Uint64("seq", seq),
		zap.Bool("proactive", proactive),
		zap.Int("remaining_waypoints", len(remaining)))
	return events
}

func (r *Router) runRecalculation(seq uint64, from datastructure.LocationFix,
	remaining []datastructure.Waypoint, proactive bool) {
	ctx := r.ctx
	if r.cfg.RecalculationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RecalculationTimeout)
		defer cancel()
	}
	route, err := r.fetcher.Recalculate(ctx, from, remaining)
	if err != nil {
		err = util.WrapErrorf(err, util.ErrRecalculation,
			"recalculation from (%.5f, %.5f) failed", from.Lat(), from.Lon())
	}
	// a closed router rejects the completion, which is exactly the discard
	// the teardown contract asks for
	_ = r.enqueue(pipelineItem{recalc: &rerouteResult{
		seq:       seq,
		route:     route,
		err:       err,
		from:      from,
		remaining: remaining,
		proactive: proactive,
	}})
}

func (r *Router) processRecalculation(res *rerouteResult) []datastructure.Event {
	if !r.arbiter.matches(res.seq) {
		return nil
	}
	if r.state != pkg.NAVIGATING {
		r.arbiter.finish()
		return nil
	}
	if res.err == nil {
		if err := routePreservesWaypoints(res.route, res.remaining); err != nil {
			res.err = err
		}
	}
	if res.err != nil {
		r.arbiter.noteFailure(time.Now())
		r.arbiter.finish()
		r.log.Warn("route recalculation failed", zap.Uint64("seq", res.seq), zap.Error(res.err))
		return []datastructure.Event{datastructure.NewRerouteFailedEvent(res.err, res.proactive)}
	}

	r.arbiter.toApplying()
	r.tracker.setRoute(res.route, res.from.Time())
	r.scheduler.reset()
	r.arrival.reset()
	r.arbiter.finish()
	r.log.Info("recalculated route applied",
		zap.Uint64("seq", res.seq),
		zap.Float64("distance_meter", res.route.GetDistance()),
		zap.Bool("proactive", res.proactive))
	return []datastructure.Event{datastructure.NewDidRerouteEvent(res.route, r.tracker.snapshot(),
		res.from, res.proactive)}
}

func (r *Router) processAdvanceLeg() []datastructure.Event {
	if r.state != pkg.NAVIGATING {
		return nil
	}
	progress := r.tracker.snapshot()
	wp := progress.CurrentTerminalWaypoint()
	wpIdx := progress.GetLegIndex() + 1
	if progress.IsFinalLeg() {
		if !r.arrival.isHeld() {
			// AdvanceLeg validated before queueing; a command invalidated
			// while queued degrades to a no-op instead of a double advance
			return nil
		}
		r.state = pkg.ARRIVED
		r.log.Info("held arrival completed manually", zap.String("waypoint", wp.GetName()))
		return []datastructure.Event{datastructure.NewArrivedAtDestinationEvent(wp, wpIdx, progress)}
	}
	r.tracker.advanceLeg(progress.GetUpdatedAt())
	r.scheduler.reset()
	r.arrival.reset()
	r.log.Info("leg advanced manually", zap.Int("leg_index", r.tracker.snapshot().GetLegIndex()))
	return nil
}

func (r *Router) processRequestReroute(pol Policy) []datastructure.Event {
	if r.state != pkg.NAVIGATING || r.lastFix == nil {
		return nil
	}
	if r.arrival.rerouteSuppressed() {
		return nil
	}
	return r.startReroute(*r.lastFix, true, pol)
}

// dispatch delivers one cycle's events: matching policy notification first,
// then the sink. decision hooks (ShouldDiscard, ShouldReroute,
// DidArriveAtWaypoint, ...) were already consulted inside the pipeline, so
// their event kinds go to the sink only.
func (r *Router) dispatch(events []datastructure.Event, pol Policy) {
	for _, ev := range events {
		switch ev.GetKind() {
		case datastructure.EVENT_PROGRESS_UPDATED:
			if pol.ProgressUpdated != nil {
				pol.ProgressUpdated(r, ev.GetProgress(), ev.GetLocation(), ev.GetRawLocation())
			}
		case datastructure.EVENT_WILL_REROUTE:
			if pol.WillReroute != nil {
				pol.WillReroute(r, ev.GetRawLocation())
			}
		case datastructure.EVENT_DID_REROUTE:
			if pol.DidReroute != nil {
				pol.DidReroute(r, ev.GetRoute(), ev.GetRawLocation(), ev.IsProactive())
			}
		case datastructure.EVENT_REROUTE_FAILED:
			if pol.DidFailToReroute != nil {
				pol.DidFailToReroute(r, ev.GetError())
			}
		case datastructure.EVENT_PASSED_VISUAL_INSTRUCTION:
			if pol.PassedVisualInstructionPoint != nil {
				pol.PassedVisualInstructionPoint(r, ev.GetInstruction(), ev.GetProgress())
			}
		case datastructure.EVENT_PASSED_SPOKEN_INSTRUCTION:
			if pol.PassedSpokenInstructionPoint != nil {
				pol.PassedSpokenInstructionPoint(r, ev.GetInstruction(), ev.GetProgress())
			}
		case datastructure.EVENT_WILL_ARRIVE_AT_WAYPOINT:
			if pol.WillArriveAtWaypoint != nil {
				pol.WillArriveAtWaypoint(r, ev.GetWaypoint(), ev.GetRemainingDuration(), ev.GetRemainingDistance())
			}
		}
		if r.sink != nil {
			r.sink(ev)
		}
	}
}
