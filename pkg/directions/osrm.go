package directions

import (
	"fmt"
	"strings"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/util"
)

// OSRM /route/v1 response shapes. error responses carry the machine-readable
// code even on non-200 statuses, so the body is decoded before the status check.
type osrmResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Routes    []osrmRoute    `json:"routes"`
	Waypoints []osrmWaypoint `json:"waypoints"`
}

type osrmRoute struct {
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Legs     []osrmLeg `json:"legs"`
}

type osrmLeg struct {
	Distance float64    `json:"distance"`
	Duration float64    `json:"duration"`
	Steps    []osrmStep `json:"steps"`
}

type osrmStep struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Name     string       `json:"name"`
	Geometry string       `json:"geometry"` // google polyline, precision 5
	Maneuver osrmManeuver `json:"maneuver"`
}

type osrmManeuver struct {
	Type         string  `json:"type"`
	Modifier     string  `json:"modifier"`
	Exit         int     `json:"exit"`
	BearingAfter float64 `json:"bearing_after"`
}

type osrmWaypoint struct {
	Name     string    `json:"name"`
	Location []float64 `json:"location"` // lon, lat
}

// buildRoute shapes the OSRM answer into a navigable route. the waypoint
// records keep the caller's coordinates, not the road-snapped ones, so a
// recalculated route always preserves the requested stops.
func buildRoute(parsed *osrmResponse, waypoints []datastructure.Waypoint,
	clockwise bool) (*datastructure.Route, error) {
	if len(parsed.Routes) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrNoRouteFound, "directions service returned no routes")
	}
	best := parsed.Routes[0]
	if len(best.Legs) != len(waypoints)-1 {
		return nil, util.WrapErrorf(nil, util.ErrMalformedRoute,
			"directions service returned %d legs for %d waypoints", len(best.Legs), len(waypoints))
	}

	named := namedWaypoints(parsed, waypoints)

	legs := make([]datastructure.Leg, len(best.Legs))
	for i, osrmLeg := range best.Legs {
		finalLeg := i == len(best.Legs)-1
		leg, err := buildLeg(osrmLeg, i == 0, finalLeg, named[i+1].GetName(), clockwise)
		if err != nil {
			return nil, err
		}
		legs[i] = leg
	}

	return datastructure.NewRoute(legs, named)
}

// namedWaypoints fills empty caller names with the snapped street name from the
// response. coordinates always stay the caller's.
func namedWaypoints(parsed *osrmResponse, waypoints []datastructure.Waypoint) []datastructure.Waypoint {
	named := make([]datastructure.Waypoint, len(waypoints))
	copy(named, waypoints)
	for i := range named {
		if named[i].GetName() != "" || i >= len(parsed.Waypoints) {
			continue
		}
		coord := named[i].GetCoord()
		named[i] = datastructure.NewWaypoint(coord.GetLat(), coord.GetLon(), parsed.Waypoints[i].Name)
	}
	return named
}

func buildLeg(leg osrmLeg, firstOfRoute, finalLeg bool, arrivalName string,
	clockwise bool) (datastructure.Leg, error) {
	// arrive pseudo-steps carry no geometry to drive on. the router detects
	// arrival itself, their announcement moves onto the last real step.
	kept := make([]osrmStep, 0, len(leg.Steps))
	for _, st := range leg.Steps {
		if st.Maneuver.Type == "arrive" {
			continue
		}
		kept = append(kept, st)
	}
	if len(kept) == 0 {
		return datastructure.Leg{}, util.WrapErrorf(nil, util.ErrMalformedRoute,
			"leg has no traversable steps")
	}

	steps := make([]datastructure.Step, len(kept))
	for i, st := range kept {
		geometry, err := geo.CoordsFromPolyline(st.Geometry)
		if err != nil {
			return datastructure.Leg{}, util.WrapErrorf(err, util.ErrMalformedRoute,
				"step %d of %q has an undecodable geometry", i, st.Name)
		}

		var farNext, nearNext string
		if i+1 < len(kept) {
			nearNext = describeManeuver(kept[i+1], clockwise)
			farNext = fmt.Sprintf("In %s, %s", spellMeters(pkg.FAR_ANNOUNCE_METER), lowerFirst(nearNext))
		} else {
			farNext, nearNext = arrivalTexts(finalLeg, arrivalName)
		}

		points := stepTriggers(st, describeManeuver(st, clockwise), farNext, nearNext,
			firstOfRoute && i == 0)
		steps[i] = datastructure.NewStep(st.Name, maneuverSlug(st.Maneuver), geometry,
			st.Distance, st.Duration, points)
	}

	return datastructure.NewLeg(steps, leg.Distance, leg.Duration), nil
}

// stepTriggers plants the banner for the step itself at its start and the
// spoken announcements of what follows near its end. the departure step also
// speaks its banner immediately.
func stepTriggers(st osrmStep, current, farNext, nearNext string,
	departure bool) []datastructure.InstructionPoint {
	points := []datastructure.InstructionPoint{
		datastructure.NewInstructionPoint(pkg.VISUAL_INSTRUCTION, 0, current),
	}
	if departure {
		points = append(points, datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 0, current))
	}
	if far := st.Distance - pkg.FAR_ANNOUNCE_METER; far > 0 {
		points = append(points, datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, far, farNext))
	}
	near := st.Distance - pkg.NEAR_ANNOUNCE_METER
	if near < 0 {
		near = 0
	}
	points = append(points, datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, near, nearNext))
	return points
}

func arrivalTexts(finalLeg bool, arrivalName string) (far string, near string) {
	target := "your destination"
	if !finalLeg {
		target = "your stop"
		if arrivalName != "" {
			target = arrivalName
		}
	}
	far = fmt.Sprintf("In %s, you will arrive at %s", spellMeters(pkg.FAR_ANNOUNCE_METER), target)
	near = fmt.Sprintf("you have arrived at %s", target)
	return far, near
}

// describeManeuver renders one OSRM maneuver in announcement text.
func describeManeuver(step osrmStep, clockwise bool) string {
	name := step.Name
	m := step.Maneuver
	switch m.Type {
	case "depart":
		compass := bearingToCompass(m.BearingAfter)
		if isEmpty(name) {
			return fmt.Sprintf("Head %s", compass)
		}
		return fmt.Sprintf("Head %s toward %s", compass, name)
	case "arrive":
		return "you have arrived at your destination"
	case "continue", "new name", "exit roundabout", "exit rotary":
		if isEmpty(name) {
			return "Continue"
		}
		return fmt.Sprintf("Continue onto %s", name)
	case "merge", "fork", "on ramp", "off ramp":
		switch {
		case strings.Contains(m.Modifier, "left"):
			if isEmpty(name) {
				return "Keep left"
			}
			return fmt.Sprintf("Keep left to continue on %s", name)
		case strings.Contains(m.Modifier, "right"):
			if isEmpty(name) {
				return "Keep right"
			}
			return fmt.Sprintf("Keep right continue on %s", name)
		default:
			if isEmpty(name) {
				return "Continue"
			}
			return fmt.Sprintf("Continue onto %s", name)
		}
	case "roundabout", "rotary":
		if m.Exit > 0 {
			roundaboutDir := "clockwise"
			if !clockwise {
				roundaboutDir = "counter-clockwise"
			}
			return fmt.Sprintf("At Roundabout, take the exit point %d %s", m.Exit, roundaboutDir)
		}
		return "Enter the roundabout"
	default:
		phrase := turnPhrase(m.Modifier)
		if isEmpty(name) {
			return phrase
		}
		if phrase == "Continue" {
			return fmt.Sprintf("Continue onto %s", name)
		}
		return fmt.Sprintf("%s onto %s", phrase, name)
	}
}

func turnPhrase(modifier string) string {
	switch modifier {
	case "uturn":
		return "Make U-turn"
	case "sharp left":
		return "Turn sharp left"
	case "left":
		return "Turn left"
	case "slight left":
		return "Turn slight left"
	case "slight right":
		return "Turn slight right"
	case "right":
		return "Turn right"
	case "sharp right":
		return "Turn sharp right"
	default:
		return "Continue"
	}
}

// maneuverSlug keeps the machine-readable maneuver on the step, e.g.
// "turn-right" or "depart".
func maneuverSlug(m osrmManeuver) string {
	if m.Modifier == "" {
		return m.Type
	}
	return m.Type + "-" + strings.ReplaceAll(m.Modifier, " ", "-")
}

func bearingToCompass(bearing float64) string {
	if bearing < 22.5 {
		return "North"
	} else if bearing < 67.5 {
		return "North East"
	} else if bearing < 112.5 {
		return "East"
	} else if bearing < 157.5 {
		return "South East"
	} else if bearing < 202.5 {
		return "South"
	} else if bearing < 247.5 {
		return "South West"
	} else if bearing < 292.5 {
		return "West"
	} else if bearing < 337.5 {
		return "North West"
	}
	return "North"
}

func spellMeters(d float64) string {
	switch d {
	case 1000:
		return "one kilometer"
	case 800:
		return "eight hundred meters"
	case 400:
		return "four hundred meters"
	case 200:
		return "two hundred meters"
	case 100:
		return "one hundred meters"
	default:
		return fmt.Sprintf("%.0f meters", d)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func isEmpty(str string) bool {
	return strings.TrimSpace(str) == ""
}
