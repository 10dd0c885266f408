package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client talks to an OSRM-compatible routing service and shapes its answers
// into routes the navigator can consume. it throttles requests and caches
// recent recalculations, so a burst of off-route triggers from the same area
// costs one upstream call.
type Client struct {
	log     *zap.Logger
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	cache   *lru.Cache[routeCacheKey, *datastructure.Route]
}

type routeCacheKey struct {
	originLat int64
	originLon int64
	signature string
}

// newRouteCacheKey rounds the origin so recalculations from nearby fixes share
// an entry. the remaining waypoints are folded in verbatim: a different stop
// list is a different route.
func newRouteCacheKey(lat, lon float64, remaining []datastructure.Waypoint) routeCacheKey {
	var sb strings.Builder
	for _, wp := range remaining {
		coord := wp.GetCoord()
		fmt.Fprintf(&sb, "%.5f,%.5f,%s;", coord.GetLat(), coord.GetLon(), wp.GetName())
	}
	return routeCacheKey{
		originLat: int64(math.Round(lat / pkg.CACHE_COORD_PRECISION)),
		originLon: int64(math.Round(lon / pkg.CACHE_COORD_PRECISION)),
		signature: sb.String(),
	}
}

func NewClient(log *zap.Logger, cfg Config) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "directions base url is empty")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = pkg.ROUTE_CACHE_SIZE
	}
	// github.com/hashicorp/golang-lru/v2 is thread-safe
	cache, err := lru.New[routeCacheKey, *datastructure.Route](cfg.CacheSize)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "route cache size %d", cfg.CacheSize)
	}

	return &Client{
		log:     log,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		cache:   cache,
	}, nil
}

// FetchRoute requests a route visiting waypoints in order. waypoint names are
// kept on the result so arrival events can name the stop.
func (c *Client) FetchRoute(ctx context.Context, waypoints []datastructure.Waypoint) (*datastructure.Route, error) {
	if len(waypoints) < 2 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"need at least 2 waypoints, got %d", len(waypoints))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "waiting for a request slot")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.routeURL(waypoints), nil)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "building directions request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError,
			"directions request to %s", c.cfg.BaseURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "reading directions response")
	}
	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, util.WrapErrorf(err, util.ErrMalformedRoute, "decoding directions response")
	}

	if parsed.Code != "Ok" || resp.StatusCode != http.StatusOK {
		if parsed.Code == "NoRoute" || parsed.Code == "NoSegment" {
			return nil, util.WrapErrorf(nil, util.ErrNoRouteFound,
				"directions service found no route: %s", parsed.Message)
		}
		return nil, util.WrapErrorf(nil, util.ErrInternalServerError,
			"directions service returned %d (%s)", resp.StatusCode, parsed.Code)
	}

	route, err := buildRoute(&parsed, waypoints, c.cfg.Clockwise)
	if err != nil {
		return nil, err
	}
	c.log.Debug("fetched route",
		zap.Int("legs", route.NumberOfLegs()),
		zap.Float64("distance_meter", route.GetDistance()),
		zap.Float64("duration_second", route.GetDuration()))
	return route, nil
}

// Recalculate builds a fresh route from the reroute origin through the
// remaining waypoints in order. routes are immutable once built, so a cache
// hit hands out the shared instance.
func (c *Client) Recalculate(ctx context.Context, from datastructure.LocationFix,
	remaining []datastructure.Waypoint) (*datastructure.Route, error) {
	if len(remaining) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "no remaining waypoints to route through")
	}

	key := newRouteCacheKey(from.Lat(), from.Lon(), remaining)
	if route, ok := c.cache.Get(key); ok {
		c.log.Debug("recalculation served from cache",
			zap.Float64("lat", from.Lat()), zap.Float64("lon", from.Lon()))
		return route, nil
	}

	waypoints := make([]datastructure.Waypoint, 0, len(remaining)+1)
	waypoints = append(waypoints, datastructure.NewWaypoint(from.Lat(), from.Lon(), ""))
	waypoints = append(waypoints, remaining...)

	route, err := c.FetchRoute(ctx, waypoints)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, route)
	return route, nil
}

func (c *Client) routeURL(waypoints []datastructure.Waypoint) string {
	var sb strings.Builder
	for i, wp := range waypoints {
		if i > 0 {
			sb.WriteByte(';')
		}
		coord := wp.GetCoord()
		fmt.Fprintf(&sb, "%.6f,%.6f", coord.GetLon(), coord.GetLat())
	}
	return fmt.Sprintf("%s/route/v1/%s/%s?overview=false&steps=true&geometries=polyline",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Profile, sb.String())
}
