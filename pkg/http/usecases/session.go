package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/navigator"
	"github.com/lintang-b-s/naviguide/pkg/util"
	"go.uber.org/zap"
)

// session pairs one navigation router with its event subscribers and its trip
// store row.
type session struct {
	id     string
	tripID string
	router *navigator.Router

	mu      sync.Mutex
	subs    map[uint64]func(datastructure.Event)
	nextSub uint64
}

// SessionService owns the live navigation sessions. every session runs its own
// router fed by the REST and websocket handlers; router events fan out to the
// session's subscribers and the durable ones land in the trip store.
type SessionService struct {
	log        *zap.Logger
	directions DirectionsClient
	trips      TripRecorder
	routerCfg  navigator.Config

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSessionService builds the service. trips may be nil, which disables trip
// persistence.
func NewSessionService(log *zap.Logger, directions DirectionsClient, trips TripRecorder,
	routerCfg navigator.Config) *SessionService {
	return &SessionService{
		log:        log,
		directions: directions,
		trips:      trips,
		routerCfg:  routerCfg,
		sessions:   make(map[string]*session),
	}
}

// CreateSession fetches a route through the given waypoints and starts a
// router for it. it returns the session id, the planned route and whether the
// router asked the platform to stop battery monitoring.
func (ss *SessionService) CreateSession(ctx context.Context, waypoints []datastructure.Waypoint) (string,
	*datastructure.Route, bool, error) {
	if len(waypoints) < 2 {
		return "", nil, false, util.WrapErrorf(nil, util.ErrBadParamInput,
			"a session needs an origin and a destination")
	}

	route, err := ss.directions.FetchRoute(ctx, waypoints)
	if err != nil {
		return "", nil, false, err
	}

	sess := &session{
		id:   uuid.New().String(),
		subs: make(map[uint64]func(datastructure.Event)),
	}
	router, err := navigator.NewRouter(ss.log, ss.routerCfg, route, ss.directions,
		navigator.Policy{}, func(ev datastructure.Event) {
			ss.handleEvent(sess, ev)
		})
	if err != nil {
		return "", nil, false, err
	}
	sess.router = router
	sess.tripID = ss.openTrip(ctx, sess.id, waypoints, route)

	ss.mu.Lock()
	ss.sessions[sess.id] = sess
	ss.mu.Unlock()

	ss.log.Info("navigation session created",
		zap.String("session_id", sess.id),
		zap.Int("waypoints", len(waypoints)))
	return sess.id, route, router.BatteryMonitoringDisabled(), nil
}

// SessionProgress returns the latest published snapshot of the session:
// progress, session state, reroute state and whether the router is held at a
// waypoint waiting for AdvanceLeg.
func (ss *SessionService) SessionProgress(sessionID string) (datastructure.RouteProgress,
	pkg.SessionState, pkg.RerouteState, bool, error) {
	sess, err := ss.getSession(sessionID)
	if err != nil {
		return datastructure.RouteProgress{}, pkg.CLOSED, pkg.REROUTE_IDLE, false, err
	}
	return sess.router.Progress(), sess.router.State(), sess.router.RerouteStatus(),
		sess.router.IsHeldAtWaypoint(), nil
}

// ConsumeFix feeds one raw location fix into the session's pipeline.
func (ss *SessionService) ConsumeFix(sessionID string, fix datastructure.LocationFix) error {
	sess, err := ss.getSession(sessionID)
	if err != nil {
		return err
	}
	return sess.router.Consume(fix)
}

// AdvanceLeg moves the session to its next leg, completing a held arrival or
// skipping the rest of the current leg.
func (ss *SessionService) AdvanceLeg(sessionID string) error {
	sess, err := ss.getSession(sessionID)
	if err != nil {
		return err
	}
	return sess.router.AdvanceLeg()
}

// RequestReroute asks for a proactive recalculation from the session's last
// known position.
func (ss *SessionService) RequestReroute(sessionID string) error {
	sess, err := ss.getSession(sessionID)
	if err != nil {
		return err
	}
	return sess.router.RequestReroute()
}

// CloseSession tears the session down and completes its trip row. a trip that
// already arrived keeps its arrived state.
func (ss *SessionService) CloseSession(sessionID string) error {
	ss.mu.Lock()
	sess, ok := ss.sessions[sessionID]
	if ok {
		delete(ss.sessions, sessionID)
	}
	ss.mu.Unlock()
	if !ok {
		return util.WrapErrorf(nil, util.ErrNotFound, "session %s not found", sessionID)
	}
	return ss.teardown(sess)
}

// CloseAll tears down every open session. used on server shutdown.
func (ss *SessionService) CloseAll() {
	ss.mu.Lock()
	sessions := make([]*session, 0, len(ss.sessions))
	for _, sess := range ss.sessions {
		sessions = append(sessions, sess)
	}
	ss.sessions = make(map[string]*session)
	ss.mu.Unlock()

	for _, sess := range sessions {
		if err := ss.teardown(sess); err != nil {
			ss.log.Warn("session teardown failed",
				zap.String("session_id", sess.id), zap.Error(err))
		}
	}
}

// Subscribe registers deliver for every event the session emits from now on.
// delivery is synchronous with the router pipeline, so a subscriber sees the
// events of one session in emission order. the returned release detaches the
// subscriber.
func (ss *SessionService) Subscribe(sessionID string, deliver func(datastructure.Event)) (func(), error) {
	sess, err := ss.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	sess.nextSub++
	id := sess.nextSub
	sess.subs[id] = deliver
	sess.mu.Unlock()
	return func() {
		sess.mu.Lock()
		delete(sess.subs, id)
		sess.mu.Unlock()
	}, nil
}

func (ss *SessionService) getSession(sessionID string) (*session, error) {
	ss.mu.RLock()
	sess, ok := ss.sessions[sessionID]
	ss.mu.RUnlock()
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "session %s not found", sessionID)
	}
	return sess, nil
}

// teardown closes the router and marks the trip row closed unless the trip
// already arrived. the arrived state was written when the destination event
// fired.
func (ss *SessionService) teardown(sess *session) error {
	arrived := sess.router.State() == pkg.ARRIVED
	if err := sess.router.Close(); err != nil {
		return err
	}
	if ss.trips != nil && sess.tripID != "" && !arrived {
		if err := ss.trips.CompleteTrip(context.Background(), sess.tripID,
			"closed", time.Now()); err != nil {
			ss.log.Warn("closing trip row failed",
				zap.String("trip_id", sess.tripID), zap.Error(err))
		}
	}
	return nil
}
