package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/navigator"
	"github.com/lintang-b-s/naviguide/pkg/tripstore"
	"github.com/lintang-b-s/naviguide/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// meter per degree on the 6371km sphere the geo package uses. fixture routes
// live on the equator so meters convert to degrees with one constant.
const meterPerDegree = 111194.9266

func deg(meter float64) float64 {
	return meter / meterPerDegree
}

// margoRoute: one leg, one 1km step east, Depok to Margo City.
func margoRoute(t *testing.T) *datastructure.Route {
	t.Helper()
	step := datastructure.NewStep("Jalan Margonda Raya", "depart",
		[]geo.Coordinate{geo.NewCoordinate(0, 0), geo.NewCoordinate(0, deg(1000))}, 0, 120, nil)
	route, err := datastructure.NewRoute(
		[]datastructure.Leg{datastructure.NewLeg([]datastructure.Step{step}, 0, 0)},
		margoWaypoints())
	require.NoError(t, err)
	return route
}

func margoWaypoints() []datastructure.Waypoint {
	return []datastructure.Waypoint{
		datastructure.NewWaypoint(0, 0, "Depok"),
		datastructure.NewWaypoint(0, deg(1000), "Margo City"),
	}
}

// rescueRoute: from an off-route position straight back to Margo City, so a
// recalculation preserves the one remaining waypoint.
func rescueRoute(t *testing.T, from geo.Coordinate) *datastructure.Route {
	t.Helper()
	end := geo.NewCoordinate(0, deg(1000))
	step := datastructure.NewStep("Jalan Ir. H. Juanda", "depart",
		[]geo.Coordinate{from, end}, 0, 90, nil)
	route, err := datastructure.NewRoute(
		[]datastructure.Leg{datastructure.NewLeg([]datastructure.Step{step}, 0, 0)},
		[]datastructure.Waypoint{
			datastructure.NewWaypoint(from.GetLat(), from.GetLon(), ""),
			datastructure.NewWaypoint(0, deg(1000), "Margo City"),
		})
	require.NoError(t, err)
	return route
}

// fixClock hands out fixes 30 seconds apart so the plausible-speed gate stays
// quiet for normal test movement.
type fixClock struct {
	now time.Time
}

func newFixClock() *fixClock {
	return &fixClock{now: time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)}
}

func (c *fixClock) tick(lat, lon float64) datastructure.LocationFix {
	c.now = c.now.Add(30 * time.Second)
	return datastructure.NewLocationFix(lat, lon, c.now, 5, -1, -1)
}

type stubDirections struct {
	mu          sync.Mutex
	route       *datastructure.Route
	recalcRoute *datastructure.Route
	fetchErr    error
	fetchCalls  int
	recalcCalls int
}

func (d *stubDirections) FetchRoute(ctx context.Context,
	waypoints []datastructure.Waypoint) (*datastructure.Route, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetchCalls++
	if d.fetchErr != nil {
		return nil, d.fetchErr
	}
	return d.route, nil
}

func (d *stubDirections) Recalculate(ctx context.Context, from datastructure.LocationFix,
	remaining []datastructure.Waypoint) (*datastructure.Route, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recalcCalls++
	if d.recalcRoute != nil {
		return d.recalcRoute, nil
	}
	return d.route, nil
}

// recordingTrips captures every trip store call for assertions.
type recordingTrips struct {
	mu          sync.Mutex
	trips       []tripstore.Trip
	arrivals    []tripstore.Arrival
	reroutes    []tripstore.Reroute
	completions []string
}

func (r *recordingTrips) CreateTrip(ctx context.Context, t tripstore.Trip) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips = append(r.trips, t)
	return fmt.Sprintf("trip-%d", len(r.trips)), nil
}

func (r *recordingTrips) RecordArrival(ctx context.Context, tripID string, a tripstore.Arrival) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arrivals = append(r.arrivals, a)
	return nil
}

func (r *recordingTrips) RecordReroute(ctx context.Context, tripID string, rr tripstore.Reroute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reroutes = append(r.reroutes, rr)
	return nil
}

func (r *recordingTrips) CompleteTrip(ctx context.Context, tripID, state string, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, state)
	return nil
}

func (r *recordingTrips) completedStates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.completions...)
}

func (r *recordingTrips) rerouteRows() []tripstore.Reroute {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tripstore.Reroute(nil), r.reroutes...)
}

// eventCollector is a test subscriber: it keeps the ordered stream and mirrors
// it onto a channel for waiting on asynchronous reroute completions.
type eventCollector struct {
	mu     sync.Mutex
	events []datastructure.Event
	ch     chan datastructure.Event
}

func newEventCollector() *eventCollector {
	return &eventCollector{ch: make(chan datastructure.Event, 256)}
}

func (c *eventCollector) deliver(ev datastructure.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	c.ch <- ev
}

func (c *eventCollector) kinds() []datastructure.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]datastructure.EventKind, 0, len(c.events))
	for _, ev := range c.events {
		kinds = append(kinds, ev.GetKind())
	}
	return kinds
}

func (c *eventCollector) countOf(kind datastructure.EventKind) int {
	n := 0
	for _, k := range c.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (c *eventCollector) waitFor(t *testing.T, kind datastructure.EventKind) datastructure.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.ch:
			if ev.GetKind() == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event within 2s", datastructure.GetEventKindName(kind))
			return datastructure.Event{}
		}
	}
}

func newTestService(directions DirectionsClient, trips TripRecorder) *SessionService {
	return NewSessionService(zap.NewNop(), directions, trips, navigator.DefaultConfig())
}

func assertCode(t *testing.T, err, code error) {
	t.Helper()
	var uerr *util.Error
	if !errors.As(err, &uerr) {
		t.Fatalf("error %v is not a *util.Error", err)
	}
	if uerr.Code() != code {
		t.Fatalf("error code = %v, want %v", uerr.Code(), code)
	}
}

func TestCreateSessionValidatesWaypoints(t *testing.T) {
	svc := newTestService(&stubDirections{}, nil)

	_, _, _, err := svc.CreateSession(context.Background(),
		[]datastructure.Waypoint{datastructure.NewWaypoint(0, 0, "Depok")})
	assertCode(t, err, util.ErrBadParamInput)
}

func TestCreateSessionPropagatesFetchFailure(t *testing.T) {
	directions := &stubDirections{
		fetchErr: util.WrapErrorf(nil, util.ErrNoRouteFound, "no route between waypoints"),
	}
	svc := newTestService(directions, nil)

	_, _, _, err := svc.CreateSession(context.Background(), margoWaypoints())
	assertCode(t, err, util.ErrNoRouteFound)
	assert.Equal(t, 1, directions.fetchCalls)
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	svc := newTestService(&stubDirections{}, nil)
	clock := newFixClock()

	_, _, _, _, err := svc.SessionProgress("nope")
	assertCode(t, err, util.ErrNotFound)
	assertCode(t, svc.ConsumeFix("nope", clock.tick(0, 0)), util.ErrNotFound)
	assertCode(t, svc.AdvanceLeg("nope"), util.ErrNotFound)
	assertCode(t, svc.RequestReroute("nope"), util.ErrNotFound)
	assertCode(t, svc.CloseSession("nope"), util.ErrNotFound)

	_, err = svc.Subscribe("nope", func(datastructure.Event) {})
	assertCode(t, err, util.ErrNotFound)
}

func TestSessionLifecycleThroughArrival(t *testing.T) {
	trips := &recordingTrips{}
	svc := newTestService(&stubDirections{route: margoRoute(t)}, trips)

	id, route, batteryOff, err := svc.CreateSession(context.Background(), margoWaypoints())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NotNil(t, route)
	assert.True(t, batteryOff)

	require.Len(t, trips.trips, 1)
	assert.Equal(t, "Depok", trips.trips[0].OriginName)
	assert.Equal(t, "Margo City", trips.trips[0].DestinationName)
	assert.InDelta(t, route.GetDistance(), trips.trips[0].PlannedDistance, 1.0)

	collector := newEventCollector()
	_, err = svc.Subscribe(id, collector.deliver)
	require.NoError(t, err)

	clock := newFixClock()
	for _, meter := range []float64{0, 200, 400} {
		require.NoError(t, svc.ConsumeFix(id, clock.tick(0, deg(meter))))
	}

	progress, state, rerouteState, held, err := svc.SessionProgress(id)
	require.NoError(t, err)
	assert.InDelta(t, 400, progress.GetDistanceTraveled(), 1.0)
	assert.Equal(t, pkg.NAVIGATING, state)
	assert.Equal(t, pkg.REROUTE_IDLE, rerouteState)
	assert.False(t, held)

	for _, meter := range []float64{600, 800, 980} {
		require.NoError(t, svc.ConsumeFix(id, clock.tick(0, deg(meter))))
	}

	_, state, _, _, err = svc.SessionProgress(id)
	require.NoError(t, err)
	assert.Equal(t, pkg.ARRIVED, state)

	// the approach band spans the 800m and 980m fixes
	assert.Equal(t, 2, collector.countOf(datastructure.EVENT_WILL_ARRIVE_AT_WAYPOINT))
	assert.Equal(t, 1, collector.countOf(datastructure.EVENT_DID_ARRIVE_AT_WAYPOINT))
	assert.Equal(t, 1, collector.countOf(datastructure.EVENT_ARRIVED_AT_DESTINATION))

	require.Len(t, trips.arrivals, 1)
	assert.Equal(t, 1, trips.arrivals[0].WaypointIndex)
	assert.Equal(t, "Margo City", trips.arrivals[0].WaypointName)
	assert.False(t, trips.arrivals[0].AutoAdvanced)
	assert.Equal(t, []string{"arrived"}, trips.completedStates())

	// closing an arrived session keeps the arrived trip state
	require.NoError(t, svc.CloseSession(id))
	assert.Equal(t, []string{"arrived"}, trips.completedStates())
	assertCode(t, svc.ConsumeFix(id, clock.tick(0, deg(990))), util.ErrNotFound)
}

func TestSubscribeFanoutAndRelease(t *testing.T) {
	svc := newTestService(&stubDirections{route: margoRoute(t)}, nil)

	id, _, _, err := svc.CreateSession(context.Background(), margoWaypoints())
	require.NoError(t, err)

	first, second := newEventCollector(), newEventCollector()
	release, err := svc.Subscribe(id, first.deliver)
	require.NoError(t, err)
	_, err = svc.Subscribe(id, second.deliver)
	require.NoError(t, err)

	clock := newFixClock()
	require.NoError(t, svc.ConsumeFix(id, clock.tick(0, deg(100))))
	assert.Equal(t, 1, first.countOf(datastructure.EVENT_PROGRESS_UPDATED))
	assert.Equal(t, 1, second.countOf(datastructure.EVENT_PROGRESS_UPDATED))

	release()
	require.NoError(t, svc.ConsumeFix(id, clock.tick(0, deg(200))))
	assert.Equal(t, 1, first.countOf(datastructure.EVENT_PROGRESS_UPDATED))
	assert.Equal(t, 2, second.countOf(datastructure.EVENT_PROGRESS_UPDATED))

	events := second.kinds()
	require.Len(t, events, 2)
	assert.Equal(t, datastructure.EVENT_PROGRESS_UPDATED, events[0])
	assert.Equal(t, datastructure.EVENT_PROGRESS_UPDATED, events[1])
}

func TestCloseSessionMidRouteClosesTrip(t *testing.T) {
	trips := &recordingTrips{}
	svc := newTestService(&stubDirections{route: margoRoute(t)}, trips)

	id, _, _, err := svc.CreateSession(context.Background(), margoWaypoints())
	require.NoError(t, err)

	clock := newFixClock()
	require.NoError(t, svc.ConsumeFix(id, clock.tick(0, deg(100))))

	require.NoError(t, svc.CloseSession(id))
	assert.Equal(t, []string{"closed"}, trips.completedStates())

	assertCode(t, svc.CloseSession(id), util.ErrNotFound)
}

func TestCloseAllTearsDownEverySession(t *testing.T) {
	trips := &recordingTrips{}
	svc := newTestService(&stubDirections{route: margoRoute(t)}, trips)

	firstID, _, _, err := svc.CreateSession(context.Background(), margoWaypoints())
	require.NoError(t, err)
	secondID, _, _, err := svc.CreateSession(context.Background(), margoWaypoints())
	require.NoError(t, err)

	svc.CloseAll()

	clock := newFixClock()
	assertCode(t, svc.ConsumeFix(firstID, clock.tick(0, 0)), util.ErrNotFound)
	assertCode(t, svc.ConsumeFix(secondID, clock.tick(0, 0)), util.ErrNotFound)
	assert.ElementsMatch(t, []string{"closed", "closed"}, trips.completedStates())
}

func TestOffRouteRerouteRecorded(t *testing.T) {
	off := geo.NewCoordinate(-deg(200), deg(400))
	rescue := rescueRoute(t, off)
	trips := &recordingTrips{}
	directions := &stubDirections{route: margoRoute(t), recalcRoute: rescue}
	svc := newTestService(directions, trips)

	id, _, _, err := svc.CreateSession(context.Background(), margoWaypoints())
	require.NoError(t, err)

	collector := newEventCollector()
	_, err = svc.Subscribe(id, collector.deliver)
	require.NoError(t, err)

	clock := newFixClock()
	require.NoError(t, svc.ConsumeFix(id, clock.tick(0, deg(200))))
	// two consecutive fixes well south of the corridor trip the streak
	require.NoError(t, svc.ConsumeFix(id, clock.tick(-deg(200), deg(300))))
	require.NoError(t, svc.ConsumeFix(id, clock.tick(off.GetLat(), off.GetLon())))

	collector.waitFor(t, datastructure.EVENT_OFF_ROUTE_DETECTED)
	collector.waitFor(t, datastructure.EVENT_WILL_REROUTE)
	ev := collector.waitFor(t, datastructure.EVENT_DID_REROUTE)
	assert.False(t, ev.IsProactive())

	rows := trips.rerouteRows()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Succeeded)
	assert.False(t, rows[0].Proactive)
	assert.InDelta(t, rescue.GetDistance(), rows[0].NewDistance, 1.0)
	assert.Equal(t, 1, directions.recalcCalls)
}

func TestRequestRerouteIsProactive(t *testing.T) {
	off := geo.NewCoordinate(0, deg(300))
	trips := &recordingTrips{}
	directions := &stubDirections{route: margoRoute(t), recalcRoute: rescueRoute(t, off)}
	svc := newTestService(directions, trips)

	id, _, _, err := svc.CreateSession(context.Background(), margoWaypoints())
	require.NoError(t, err)

	collector := newEventCollector()
	_, err = svc.Subscribe(id, collector.deliver)
	require.NoError(t, err)

	clock := newFixClock()
	require.NoError(t, svc.ConsumeFix(id, clock.tick(0, deg(300))))
	require.NoError(t, svc.RequestReroute(id))

	ev := collector.waitFor(t, datastructure.EVENT_DID_REROUTE)
	assert.True(t, ev.IsProactive())

	rows := trips.rerouteRows()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Proactive)
}

func TestAdvanceLegOnSingleLegRoute(t *testing.T) {
	svc := newTestService(&stubDirections{route: margoRoute(t)}, nil)

	id, _, _, err := svc.CreateSession(context.Background(), margoWaypoints())
	require.NoError(t, err)

	clock := newFixClock()
	require.NoError(t, svc.ConsumeFix(id, clock.tick(0, deg(100))))
	assertCode(t, svc.AdvanceLeg(id), util.ErrInvalidLegAdvancement)
}
