package directions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const meterPerDegree = 111194.9266

func newOSRMClient(t *testing.T, fn http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(fn)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RatePerSecond = 1000
	cfg.RateBurst = 100
	client, err := NewClient(zap.NewNop(), cfg)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return client
}

func assertCode(t *testing.T, err error, code error) {
	t.Helper()
	var uerr *util.Error
	if !errors.As(err, &uerr) {
		t.Fatalf("err %v is not a util.Error", err)
	}
	if uerr.Code() != code {
		t.Fatalf("err code = %v, want %v", uerr.Code(), code)
	}
}

// one leg: 1 km east on Jalan Margonda Raya, turn right, 1 km south on
// Jalan Ir. H. Juanda, then the arrive pseudo-step
func margondaOSRMResponse() osrmResponse {
	east := func(m float64) geo.Coordinate { return geo.NewCoordinate(0, m/meterPerDegree) }
	south := func(m float64) geo.Coordinate {
		return geo.NewCoordinate(-m/meterPerDegree, 1000/meterPerDegree)
	}

	return osrmResponse{
		Code: "Ok",
		Routes: []osrmRoute{{
			Distance: 2000,
			Duration: 270,
			Legs: []osrmLeg{{
				Distance: 2000,
				Duration: 270,
				Steps: []osrmStep{
					{
						Distance: 1000, Duration: 120, Name: "Jalan Margonda Raya",
						Geometry: geo.PoylineFromCoords([]geo.Coordinate{east(0), east(500), east(1000)}),
						Maneuver: osrmManeuver{Type: "depart", BearingAfter: 90},
					},
					{
						Distance: 1000, Duration: 150, Name: "Jalan Ir. H. Juanda",
						Geometry: geo.PoylineFromCoords([]geo.Coordinate{south(0), south(500), south(1000)}),
						Maneuver: osrmManeuver{Type: "turn", Modifier: "right", BearingAfter: 180},
					},
					{
						Distance: 0, Duration: 0, Name: "Jalan Ir. H. Juanda",
						Geometry: geo.PoylineFromCoords([]geo.Coordinate{south(1000), south(1000)}),
						Maneuver: osrmManeuver{Type: "arrive"},
					},
				},
			}},
		}},
		Waypoints: []osrmWaypoint{
			{Name: "Jalan Margonda Raya", Location: []float64{0, 0}},
			{Name: "Jalan Ir. H. Juanda", Location: []float64{1000 / meterPerDegree, -1000 / meterPerDegree}},
		},
	}
}

func margondaRequest() []datastructure.Waypoint {
	return []datastructure.Waypoint{
		datastructure.NewWaypoint(0, 0, "Depok"),
		datastructure.NewWaypoint(-1000/meterPerDegree, 1000/meterPerDegree, "Stasiun Pondok Cina"),
	}
}

func instructionTexts(points []datastructure.InstructionPoint) []string {
	texts := make([]string, len(points))
	for i, p := range points {
		texts[i] = p.GetText()
	}
	return texts
}

func TestFetchRouteBuildsNavigableRoute(t *testing.T) {
	var gotPath, gotQuery string
	client := newOSRMClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(margondaOSRMResponse())
	})

	route, err := client.FetchRoute(context.Background(), margondaRequest())
	require.NoError(t, err)

	assert.Equal(t, "/route/v1/driving/0.000000,0.000000;0.008993,-0.008993", gotPath)
	assert.Equal(t, "overview=false&steps=true&geometries=polyline", gotQuery)

	require.Equal(t, 1, route.NumberOfLegs())
	assert.Equal(t, "Depok", route.GetWaypoint(0).GetName())
	assert.Equal(t, "Stasiun Pondok Cina", route.GetWaypoint(1).GetName())
	assert.InDelta(t, 2000, route.GetDistance(), 0.01)
	assert.InDelta(t, 270, route.GetDuration(), 0.01)

	leg := route.GetLeg(0)
	require.Equal(t, 2, leg.NumberOfSteps(), "the arrive pseudo-step must be dropped")

	depart := leg.GetStep(0)
	assert.Equal(t, "Jalan Margonda Raya", depart.GetName())
	assert.Equal(t, "depart", depart.GetManeuver())
	require.Len(t, depart.GetGeometry(), 3)
	assert.Equal(t,
		[]string{"Head East toward Jalan Margonda Raya"},
		instructionTexts(depart.GetVisualInstructions()))
	spoken := depart.GetSpokenInstructions()
	require.Len(t, spoken, 3)
	assert.Equal(t, "Head East toward Jalan Margonda Raya", spoken[0].GetText())
	assert.InDelta(t, 0, spoken[0].GetDistance(), 1e-9)
	assert.Equal(t, "In four hundred meters, turn right onto Jalan Ir. H. Juanda", spoken[1].GetText())
	assert.InDelta(t, 600, spoken[1].GetDistance(), 1e-9)
	assert.Equal(t, "Turn right onto Jalan Ir. H. Juanda", spoken[2].GetText())
	assert.InDelta(t, 920, spoken[2].GetDistance(), 1e-9)

	turn := leg.GetStep(1)
	assert.Equal(t, "turn-right", turn.GetManeuver())
	assert.Equal(t,
		[]string{"Turn right onto Jalan Ir. H. Juanda"},
		instructionTexts(turn.GetVisualInstructions()))
	assert.Equal(t,
		[]string{
			"In four hundred meters, you will arrive at your destination",
			"you have arrived at your destination",
		},
		instructionTexts(turn.GetSpokenInstructions()))
}

func TestFetchRouteNamesWaypointsFromService(t *testing.T) {
	client := newOSRMClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(margondaOSRMResponse())
	})

	// unnamed origin borrows the snapped street name, coords stay the caller's
	route, err := client.FetchRoute(context.Background(), []datastructure.Waypoint{
		datastructure.NewWaypoint(0, 0, ""),
		datastructure.NewWaypoint(-1000/meterPerDegree, 1000/meterPerDegree, "Stasiun Pondok Cina"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Jalan Margonda Raya", route.GetWaypoint(0).GetName())
	assert.InDelta(t, 0, route.GetWaypoint(0).GetCoord().GetLat(), 1e-12)
	assert.InDelta(t, 0, route.GetWaypoint(0).GetCoord().GetLon(), 1e-12)
}

func TestFetchRouteErrorTaxonomy(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{
			name:   "no route between the points",
			status: http.StatusBadRequest,
			body:   `{"code":"NoRoute","message":"Impossible route between points"}`,
			want:   util.ErrNoRouteFound,
		},
		{
			name:   "no road segment near a waypoint",
			status: http.StatusBadRequest,
			body:   `{"code":"NoSegment","message":"Could not find a matching segment"}`,
			want:   util.ErrNoRouteFound,
		},
		{
			name:   "service failure",
			status: http.StatusInternalServerError,
			body:   `{"code":"InternalError"}`,
			want:   util.ErrInternalServerError,
		},
		{
			name:   "undecodable body",
			status: http.StatusOK,
			body:   `{"code":`,
			want:   util.ErrMalformedRoute,
		},
		{
			name:   "ok with no routes",
			status: http.StatusOK,
			body:   `{"code":"Ok","routes":[]}`,
			want:   util.ErrNoRouteFound,
		},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			client := newOSRMClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := client.FetchRoute(context.Background(), margondaRequest())
			require.Error(t, err)
			assertCode(t, err, tt.want)
		})
	}
}

func TestFetchRouteValidatesInput(t *testing.T) {
	client := newOSRMClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.FetchRoute(context.Background(), margondaRequest()[:1])
	assertCode(t, err, util.ErrBadParamInput)

	_, err = client.Recalculate(context.Background(),
		datastructure.NewLocationFix(0, 0, time.Now(), 5, -1, -1), nil)
	assertCode(t, err, util.ErrBadParamInput)
}

func TestRecalculateCachesNearbyOrigins(t *testing.T) {
	calls := atomic.NewInt32(0)
	client := newOSRMClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Inc()
		json.NewEncoder(w).Encode(margondaOSRMResponse())
	})

	remaining := []datastructure.Waypoint{
		datastructure.NewWaypoint(-1000/meterPerDegree, 1000/meterPerDegree, "Stasiun Pondok Cina"),
	}

	first, err := client.Recalculate(context.Background(),
		datastructure.NewLocationFix(0.00001, 0.00001, time.Now(), 5, -1, -1), remaining)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	// two meters away rounds to the same cache cell
	second, err := client.Recalculate(context.Background(),
		datastructure.NewLocationFix(0.00003, 0.00002, time.Now(), 5, -1, -1), remaining)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Same(t, first, second)

	// a different stop list goes upstream again
	_, err = client.Recalculate(context.Background(),
		datastructure.NewLocationFix(0.00001, 0.00001, time.Now(), 5, -1, -1),
		[]datastructure.Waypoint{
			datastructure.NewWaypoint(-1000/meterPerDegree, 1000/meterPerDegree, "Margo City"),
		})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRecalculatePreservesRequestedWaypoints(t *testing.T) {
	client := newOSRMClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(margondaOSRMResponse())
	})

	destLat, destLon := -1000/meterPerDegree, 1000/meterPerDegree
	route, err := client.Recalculate(context.Background(),
		datastructure.NewLocationFix(0.0001, 0.0002, time.Now(), 5, -1, -1),
		[]datastructure.Waypoint{datastructure.NewWaypoint(destLat, destLon, "Stasiun Pondok Cina")})
	require.NoError(t, err)

	require.Equal(t, 2, route.NumberOfWaypoints())
	assert.InDelta(t, 0.0001, route.GetWaypoint(0).GetCoord().GetLat(), 1e-12)
	assert.InDelta(t, 0.0002, route.GetWaypoint(0).GetCoord().GetLon(), 1e-12)
	assert.InDelta(t, destLat, route.GetWaypoint(1).GetCoord().GetLat(), 1e-12)
	assert.InDelta(t, destLon, route.GetWaypoint(1).GetCoord().GetLon(), 1e-12)
	assert.Equal(t, "Stasiun Pondok Cina", route.GetWaypoint(1).GetName())
}

func TestFetchRouteHonorsContext(t *testing.T) {
	client := newOSRMClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.FetchRoute(ctx, margondaRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "err: %v", err)
	assertCode(t, err, util.ErrInternalServerError)
}
