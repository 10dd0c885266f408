package main

import (
	"context"
	"encoding/csv"
	"flag"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/directions"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/logger"
	"github.com/lintang-b-s/naviguide/pkg/navigator"
	"github.com/lintang-b-s/naviguide/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	routeFile  = flag.String("route", "./data/sample.route", "route fixture to replay")
	configPath = flag.String("config_path", "./data/", "directory containing config.yaml")
	speed      = flag.Float64("speed", 11.0, "simulated speed in meter/second")
	interval   = flag.Float64("interval", 1.0, "seconds between fixes")
	noiseSigma = flag.Float64("noise", 4.0, "gaussian position noise sigma in meter")
	accuracy   = flag.Float64("accuracy", 8.0, "reported horizontal accuracy in meter")
	detourAt   = flag.Float64("detour_at", 0, "route fraction where a detour starts, 0 disables")
	useOSRM    = flag.Bool("osrm", false, "recalculate through the configured OSRM backend instead of straight lines")
	tracePath  = flag.String("trace", "", "write the synthesized fixes to this csv file")
	realtime   = flag.Bool("realtime", false, "sleep interval seconds between fixes")
	seed       = flag.Uint64("seed", 0, "rng seed, 0 seeds from the clock")
)

const meterPerDegreeLat = 111194.9266

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	if err := util.ReadConfig(*configPath); err != nil {
		logger.Warn("config.yaml not loaded, running on defaults", zap.Error(err))
	}

	route, err := datastructure.ReadRoute(*routeFile)
	if err != nil {
		panic(err)
	}
	logger.Info("route fixture loaded",
		zap.String("file", *routeFile),
		zap.Int("legs", route.NumberOfLegs()),
		zap.Float64("distance_meter", route.GetDistance()))

	var fetcher navigator.RouteFetcher = straightLineFetcher{travelSpeed: *speed}
	if *useOSRM {
		client, err := directions.NewClient(logger, directions.NewConfigFromViper())
		if err != nil {
			panic(err)
		}
		fetcher = client
	}

	sim := newSimulation(logger, route)
	router, err := navigator.NewRouter(logger, navigator.NewConfigFromViper(), route,
		fetcher, navigator.Policy{}, sim.observe)
	if err != nil {
		panic(err)
	}
	defer router.Close()

	sim.run(router)
}

// simulation walks the active route at constant speed, perturbing every
// position with gaussian noise. the router event stream steers it: a reroute
// moves the walk onto the recalculated route, arrival stops it.
type simulation struct {
	log   *zap.Logger
	rd    *rand.Rand
	trace *csv.Writer

	route    *datastructure.Route
	traveled float64
	now      time.Time

	detouring  bool
	detourDone bool
	offsetM    float64

	rerouted *datastructure.Route
	arrived  bool
}

func newSimulation(log *zap.Logger, route *datastructure.Route) *simulation {
	s := *seed
	if s == 0 {
		s = uint64(time.Now().UnixNano())
	}
	sim := &simulation{
		log:   log,
		rd:    rand.New(rand.NewSource(s)),
		route: route,
		now:   time.Now(),
	}
	if *tracePath != "" {
		f, err := os.Create(*tracePath)
		if err != nil {
			panic(err)
		}
		sim.trace = csv.NewWriter(f)
		sim.trace.Write([]string{"time", "lat", "lon", "accuracy_meter"})
	}
	return sim
}

func (sim *simulation) run(router *navigator.Router) {
	// generous fix budget, the walk normally ends at the arrival event
	budget := int(sim.route.GetDistance()/(*speed**interval))*3 + 300

	for i := 0; i < budget && !sim.arrived; i++ {
		fix := sim.nextFix()
		if err := router.Consume(fix); err != nil {
			sim.log.Error("consume failed", zap.Error(err))
			return
		}
		// reroute switches the walk onto the fresh route, which starts at
		// the position the recalculation ran from
		if sim.rerouted != nil {
			sim.route = sim.rerouted
			sim.rerouted = nil
			sim.traveled = 0
			sim.detouring = false
		}
		if *realtime {
			time.Sleep(time.Duration(*interval * float64(time.Second)))
		}
	}
	if sim.trace != nil {
		sim.trace.Flush()
	}
	if !sim.arrived {
		sim.log.Warn("fix budget exhausted before arrival")
	}
}

// nextFix advances the walk one interval and synthesizes the raw reading.
func (sim *simulation) nextFix() datastructure.LocationFix {
	if sim.detouring {
		sim.offsetM += 15
	} else {
		sim.traveled += *speed * *interval
		if *detourAt > 0 && !sim.detourDone &&
			sim.traveled/sim.route.GetDistance() >= *detourAt {
			sim.detouring = true
			sim.detourDone = true
			sim.offsetM = 0
			sim.log.Info("veering off route", zap.Float64("at_meter", sim.traveled))
		}
	}

	pos := locateAlongRoute(sim.route, sim.traveled)
	ahead := locateAlongRoute(sim.route, sim.traveled+*speed**interval)
	course := geo.BearingTo(pos.GetLat(), pos.GetLon(), ahead.GetLat(), ahead.GetLon())

	lat := pos.GetLat() - sim.offsetM/meterPerDegreeLat
	lon := pos.GetLon()
	lat += sim.rd.NormFloat64() * *noiseSigma / meterPerDegreeLat
	lon += sim.rd.NormFloat64() * *noiseSigma /
		(meterPerDegreeLat * math.Cos(lat*math.Pi/180))

	sim.now = sim.now.Add(time.Duration(*interval * float64(time.Second)))
	if sim.trace != nil {
		sim.trace.Write([]string{
			sim.now.UTC().Format(time.RFC3339),
			strconv.FormatFloat(lat, 'f', 7, 64),
			strconv.FormatFloat(lon, 'f', 7, 64),
			strconv.FormatFloat(*accuracy, 'f', 1, 64),
		})
	}
	return datastructure.NewLocationFix(lat, lon, sim.now, *accuracy, course, *speed)
}

// observe is the router sink. it runs synchronously inside Consume, so plain
// field writes are safe.
func (sim *simulation) observe(ev datastructure.Event) {
	switch ev.GetKind() {
	case datastructure.EVENT_PROGRESS_UPDATED:
		progress := ev.GetProgress()
		sim.log.Debug("progress",
			zap.Float64("fraction", progress.FractionTraveled()),
			zap.Float64("remaining_meter", progress.GetDistanceRemaining()))
	case datastructure.EVENT_PASSED_VISUAL_INSTRUCTION:
		sim.log.Info("banner", zap.String("text", ev.GetInstruction().GetText()))
	case datastructure.EVENT_PASSED_SPOKEN_INSTRUCTION:
		sim.log.Info("voice", zap.String("text", ev.GetInstruction().GetText()))
	case datastructure.EVENT_OFF_ROUTE_DETECTED:
		sim.log.Warn("off route",
			zap.Float64("lat", ev.GetRawLocation().Lat()),
			zap.Float64("lon", ev.GetRawLocation().Lon()))
	case datastructure.EVENT_REROUTE_EVALUATION:
		sim.log.Info("reroute evaluation", zap.Bool("proactive", ev.IsProactive()))
	case datastructure.EVENT_WILL_REROUTE:
		sim.log.Info("rerouting", zap.Bool("proactive", ev.IsProactive()))
	case datastructure.EVENT_DID_REROUTE:
		sim.rerouted = ev.GetRoute()
		sim.log.Info("rerouted",
			zap.Float64("new_distance_meter", ev.GetRoute().GetDistance()))
	case datastructure.EVENT_REROUTE_FAILED:
		sim.log.Error("reroute failed", zap.Error(ev.GetError()))
	case datastructure.EVENT_WILL_ARRIVE_AT_WAYPOINT:
		sim.log.Info("approaching waypoint",
			zap.String("waypoint", ev.GetWaypoint().GetName()),
			zap.Float64("remaining_meter", ev.GetRemainingDistance()))
	case datastructure.EVENT_DID_ARRIVE_AT_WAYPOINT:
		sim.log.Info("arrived at waypoint",
			zap.String("waypoint", ev.GetWaypoint().GetName()),
			zap.Bool("advanced", ev.HasAdvanced()))
	case datastructure.EVENT_ARRIVED_AT_DESTINATION:
		sim.arrived = true
		sim.log.Info("arrived at destination", zap.String("waypoint", ev.GetWaypoint().GetName()))
	}
}

// locateAlongRoute maps distance from the route start to a coordinate on its
// geometry, clamping past the end.
func locateAlongRoute(route *datastructure.Route, distance float64) geo.Coordinate {
	for _, leg := range route.GetLegs() {
		for _, step := range leg.GetSteps() {
			if distance <= step.GetDistance() {
				return step.LocateAlong(distance)
			}
			distance -= step.GetDistance()
		}
	}
	geom := route.FullGeometry()
	return geom[len(geom)-1]
}

// straightLineFetcher rebuilds a direct route from the current position
// through the remaining waypoints, one straight step per leg. it keeps the
// simulator self-contained when no OSRM backend is around.
type straightLineFetcher struct {
	travelSpeed float64
}

func (f straightLineFetcher) Recalculate(ctx context.Context, from datastructure.LocationFix,
	remaining []datastructure.Waypoint) (*datastructure.Route, error) {
	waypoints := make([]datastructure.Waypoint, 0, len(remaining)+1)
	waypoints = append(waypoints, datastructure.NewWaypoint(from.Lat(), from.Lon(), ""))
	waypoints = append(waypoints, remaining...)

	legs := make([]datastructure.Leg, len(remaining))
	prev := geo.NewCoordinate(from.Lat(), from.Lon())
	for i, wp := range remaining {
		geom := []geo.Coordinate{prev, wp.GetCoord()}
		duration := geo.PolylineLengthMeter(geom) / f.travelSpeed
		step := datastructure.NewStep("", "depart", geom, 0, duration,
			[]datastructure.InstructionPoint{
				datastructure.NewInstructionPoint(pkg.VISUAL_INSTRUCTION, 0,
					"Head to "+wp.GetName()),
			})
		legs[i] = datastructure.NewLeg([]datastructure.Step{step}, 0, 0)
		prev = wp.GetCoord()
	}
	return datastructure.NewRoute(legs, waypoints)
}
