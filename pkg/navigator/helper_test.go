package navigator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/util"
	"go.uber.org/zap"
)

// meter per degree of latitude, and of longitude on the equator, for the
// 6371km sphere the geo package uses. test routes live on the equator so
// meters convert to degrees with one constant.
const meterPerDegree = 111194.9266

func deg(meter float64) float64 {
	return meter / meterPerDegree
}

// eastCoord is the point meter east of (0, 0) along the equator.
func eastCoord(meter float64) geo.Coordinate {
	return geo.NewCoordinate(0, deg(meter))
}

// southCoord is the point southMeter south of eastCoord(eastMeter).
func southCoord(eastMeter, southMeter float64) geo.Coordinate {
	return geo.NewCoordinate(-deg(southMeter), deg(eastMeter))
}

// fixClock hands out fixes 30 seconds apart so the plausible-speed gate stays
// quiet for normal test movement.
type fixClock struct {
	now time.Time
}

func newFixClock() *fixClock {
	return &fixClock{now: time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)}
}

func (c *fixClock) tick(coord geo.Coordinate, accuracy float64) datastructure.LocationFix {
	c.now = c.now.Add(30 * time.Second)
	return datastructure.NewLocationFix(coord.GetLat(), coord.GetLon(), c.now, accuracy, -1, -1)
}

// margondaRoute: one leg, two 1km steps, east along Margonda Raya then south
// onto Ir. H. Juanda, with the usual banner/voice trigger layout.
func margondaRoute(t *testing.T) *datastructure.Route {
	t.Helper()
	step0 := datastructure.NewStep("Jalan Margonda Raya", "depart",
		[]geo.Coordinate{eastCoord(0), eastCoord(500), eastCoord(1000)}, 0, 120,
		[]datastructure.InstructionPoint{
			datastructure.NewInstructionPoint(pkg.VISUAL_INSTRUCTION, 0,
				"Head east on Jalan Margonda Raya"),
			datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 600,
				"In four hundred meters, turn right onto Jalan Ir. H. Juanda"),
			datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 920,
				"Turn right onto Jalan Ir. H. Juanda"),
		})
	step1 := datastructure.NewStep("Jalan Ir. H. Juanda", "turn-right",
		[]geo.Coordinate{eastCoord(1000), southCoord(1000, 500), southCoord(1000, 1000)}, 0, 150,
		[]datastructure.InstructionPoint{
			datastructure.NewInstructionPoint(pkg.VISUAL_INSTRUCTION, 0,
				"Continue on Jalan Ir. H. Juanda"),
			datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 900,
				"You have arrived at your destination"),
		})
	end := southCoord(1000, 1000)
	route, err := datastructure.NewRoute(
		[]datastructure.Leg{datastructure.NewLeg([]datastructure.Step{step0, step1}, 0, 0)},
		[]datastructure.Waypoint{
			datastructure.NewWaypoint(0, 0, "Depok"),
			datastructure.NewWaypoint(end.GetLat(), end.GetLon(), "Stasiun Pondok Cina"),
		})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return route
}

// margondaAt maps distance from the route start to a coordinate on
// margondaRoute.
func margondaAt(meter float64) geo.Coordinate {
	if meter <= 1000 {
		return eastCoord(meter)
	}
	return southCoord(1000, meter-1000)
}

// straightRoute: one leg, one instruction-free 1km step east.
func straightRoute(t *testing.T) *datastructure.Route {
	t.Helper()
	step := datastructure.NewStep("Jalan Margonda Raya", "depart",
		[]geo.Coordinate{eastCoord(0), eastCoord(1000)}, 0, 120, nil)
	route, err := datastructure.NewRoute(
		[]datastructure.Leg{datastructure.NewLeg([]datastructure.Step{step}, 0, 0)},
		[]datastructure.Waypoint{
			datastructure.NewWaypoint(0, 0, "Depok"),
			datastructure.NewWaypoint(0, deg(1000), "Margo City"),
		})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return route
}

// twoLegRoute: two 1km legs east through an intermediate stop.
func twoLegRoute(t *testing.T) *datastructure.Route {
	t.Helper()
	step0 := datastructure.NewStep("Jalan Margonda Raya", "depart",
		[]geo.Coordinate{eastCoord(0), eastCoord(1000)}, 0, 120, nil)
	step1 := datastructure.NewStep("Jalan Margonda Raya", "depart",
		[]geo.Coordinate{eastCoord(1000), eastCoord(2000)}, 0, 110, nil)
	route, err := datastructure.NewRoute(
		[]datastructure.Leg{
			datastructure.NewLeg([]datastructure.Step{step0}, 0, 0),
			datastructure.NewLeg([]datastructure.Step{step1}, 0, 0),
		},
		[]datastructure.Waypoint{
			datastructure.NewWaypoint(0, 0, "Depok"),
			datastructure.NewWaypoint(0, deg(1000), "Stasiun Pondok Cina"),
			datastructure.NewWaypoint(0, deg(2000), "Margo City"),
		})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return route
}

// stubFetcher hands back a canned route or error. gate, when set, blocks the
// call until closed (or the context dies), which lets tests hold a
// recalculation in flight.
type stubFetcher struct {
	mu            sync.Mutex
	route         *datastructure.Route
	err           error
	calls         int
	lastFrom      datastructure.LocationFix
	lastRemaining []datastructure.Waypoint

	gate     chan struct{}
	entered  chan struct{}
	returned chan struct{}
}

func newStubFetcher(route *datastructure.Route) *stubFetcher {
	return &stubFetcher{
		route:    route,
		entered:  make(chan struct{}, 8),
		returned: make(chan struct{}, 8),
	}
}

func (f *stubFetcher) Recalculate(ctx context.Context, from datastructure.LocationFix,
	remaining []datastructure.Waypoint) (*datastructure.Route, error) {
	f.mu.Lock()
	f.calls++
	f.lastFrom = from
	f.lastRemaining = remaining
	route, err, gate := f.route, f.err, f.gate
	f.mu.Unlock()

	f.entered <- struct{}{}
	defer func() { f.returned <- struct{}{} }()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return route, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *stubFetcher) fromSeen() datastructure.LocationFix {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFrom
}

func (f *stubFetcher) remainingSeen() []datastructure.Waypoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRemaining
}

// eventCollector is the test sink: it keeps the full ordered stream and
// mirrors it onto a channel for waiting on asynchronous reroute completions.
type eventCollector struct {
	mu     sync.Mutex
	events []datastructure.Event
	ch     chan datastructure.Event
}

func newEventCollector() *eventCollector {
	return &eventCollector{ch: make(chan datastructure.Event, 256)}
}

func (c *eventCollector) sink(ev datastructure.Event) {
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

func (c *eventCollector) ofKind(kind datastructure.EventKind) []datastructure.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []datastructure.Event
	for _, ev := range c.events {
		if ev.GetKind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (c *eventCollector) countOf(kind datastructure.EventKind) int {
	return len(c.ofKind(kind))
}

func (c *eventCollector) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// waitFor blocks until an event of kind comes through the sink, failing the
// test after two seconds. it consumes the channel mirror, so call it in
// emission order.
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

func newTestRouter(t *testing.T, cfg Config, route *datastructure.Route,
	fetcher RouteFetcher, policy Policy) (*Router, *eventCollector) {
	t.Helper()
	c := newEventCollector()
	r, err := NewRouter(zap.NewNop(), cfg, route, fetcher, policy, c.sink)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return r, c
}

// assertCode checks that err carries the given code the way WrapErrorf
// attaches it.
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
