package datastructure

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/util"
)

// WriteRoute stores route as a bzip2-compressed text file. strings (waypoint
// names, step names, maneuvers, instruction texts) sit at the end of their
// line or on a line of their own, so they may contain spaces.
func (r *Route) WriteRoute(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	defer bz.Close()

	w := bufio.NewWriter(bz)

	fmt.Fprintf(w, "%d %d\n", len(r.legs), len(r.waypoints))

	for _, wp := range r.waypoints {
		latF := strconv.FormatFloat(wp.coord.GetLat(), 'f', -1, 64)
		lonF := strconv.FormatFloat(wp.coord.GetLon(), 'f', -1, 64)
		fmt.Fprintf(w, "%s %s\n", latF, lonF)
		fmt.Fprintf(w, "%s\n", wp.name)
	}

	for _, leg := range r.legs {
		distF := strconv.FormatFloat(leg.distance, 'f', -1, 64)
		durF := strconv.FormatFloat(leg.duration, 'f', -1, 64)
		fmt.Fprintf(w, "%d %s %s\n", len(leg.steps), distF, durF)

		for _, step := range leg.steps {
			distF = strconv.FormatFloat(step.distance, 'f', -1, 64)
			durF = strconv.FormatFloat(step.duration, 'f', -1, 64)
			numInstructions := len(step.visual) + len(step.spoken)
			fmt.Fprintf(w, "%s %s %d %d\n", distF, durF, len(step.geometry), numInstructions)
			fmt.Fprintf(w, "%s\n", step.name)
			fmt.Fprintf(w, "%s\n", step.maneuver)

			for _, c := range step.geometry {
				latF := strconv.FormatFloat(c.GetLat(), 'f', -1, 64)
				lonF := strconv.FormatFloat(c.GetLon(), 'f', -1, 64)
				fmt.Fprintf(w, "%s %s\n", latF, lonF)
			}

			for _, ip := range step.visual {
				writeInstructionPoint(w, ip)
			}
			for _, ip := range step.spoken {
				writeInstructionPoint(w, ip)
			}
		}
	}

	return w.Flush()
}

func writeInstructionPoint(w *bufio.Writer, ip InstructionPoint) {
	distF := strconv.FormatFloat(ip.distance, 'f', -1, 64)
	fmt.Fprintf(w, "%d %s %s\n", ip.kind, distF, ip.text)
}

// ReadRoute loads a route written by WriteRoute. the result goes through
// NewRoute, so a tampered file cannot produce a malformed route.
func ReadRoute(filename string) (*Route, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(bz)

	line, err := util.ReadLine(br)
	if err != nil {
		return nil, err
	}
	tokens := strings.Fields(line)
	if len(tokens) != 2 {
		return nil, util.WrapErrorf(nil, util.ErrMalformedRoute, "bad route header %q", line)
	}
	numLegs, err := strconv.Atoi(tokens[0])
	if err != nil {
		return nil, err
	}
	numWaypoints, err := strconv.Atoi(tokens[1])
	if err != nil {
		return nil, err
	}

	waypoints := make([]Waypoint, numWaypoints)
	for i := 0; i < numWaypoints; i++ {
		line, err = util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		tokens = strings.Fields(line)
		if len(tokens) != 2 {
			return nil, util.WrapErrorf(nil, util.ErrMalformedRoute, "bad waypoint line %q", line)
		}
		lat, err := util.StringToFloat64(tokens[0])
		if err != nil {
			return nil, err
		}
		lon, err := util.StringToFloat64(tokens[1])
		if err != nil {
			return nil, err
		}
		name, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		waypoints[i] = NewWaypoint(lat, lon, name)
	}

	legs := make([]Leg, numLegs)
	for li := 0; li < numLegs; li++ {
		line, err = util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		tokens = strings.Fields(line)
		if len(tokens) != 3 {
			return nil, util.WrapErrorf(nil, util.ErrMalformedRoute, "bad leg line %q", line)
		}
		numSteps, err := strconv.Atoi(tokens[0])
		if err != nil {
			return nil, err
		}
		legDist, err := util.StringToFloat64(tokens[1])
		if err != nil {
			return nil, err
		}
		legDur, err := util.StringToFloat64(tokens[2])
		if err != nil {
			return nil, err
		}

		steps := make([]Step, numSteps)
		for si := 0; si < numSteps; si++ {
			steps[si], err = readStep(br)
			if err != nil {
				return nil, err
			}
		}
		legs[li] = NewLeg(steps, legDist, legDur)
	}

	return NewRoute(legs, waypoints)
}

func readStep(br *bufio.Reader) (Step, error) {
	line, err := util.ReadLine(br)
	if err != nil {
		return Step{}, err
	}
	tokens := strings.Fields(line)
	if len(tokens) != 4 {
		return Step{}, util.WrapErrorf(nil, util.ErrMalformedRoute, "bad step line %q", line)
	}
	dist, err := util.StringToFloat64(tokens[0])
	if err != nil {
		return Step{}, err
	}
	dur, err := util.StringToFloat64(tokens[1])
	if err != nil {
		return Step{}, err
	}
	numGeom, err := strconv.Atoi(tokens[2])
	if err != nil {
		return Step{}, err
	}
	numInstructions, err := strconv.Atoi(tokens[3])
	if err != nil {
		return Step{}, err
	}

	name, err := util.ReadLine(br)
	if err != nil {
		return Step{}, err
	}
	maneuver, err := util.ReadLine(br)
	if err != nil {
		return Step{}, err
	}

	geometry := make([]geo.Coordinate, numGeom)
	for i := 0; i < numGeom; i++ {
		line, err = util.ReadLine(br)
		if err != nil {
			return Step{}, err
		}
		tokens = strings.Fields(line)
		if len(tokens) != 2 {
			return Step{}, util.WrapErrorf(nil, util.ErrMalformedRoute, "bad geometry line %q", line)
		}
		lat, err := util.StringToFloat64(tokens[0])
		if err != nil {
			return Step{}, err
		}
		lon, err := util.StringToFloat64(tokens[1])
		if err != nil {
			return Step{}, err
		}
		geometry[i] = geo.NewCoordinate(lat, lon)
	}

	instructions := make([]InstructionPoint, numInstructions)
	for i := 0; i < numInstructions; i++ {
		line, err = util.ReadLine(br)
		if err != nil {
			return Step{}, err
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) < 2 {
			return Step{}, util.WrapErrorf(nil, util.ErrMalformedRoute, "bad instruction line %q", line)
		}
		kindRaw, err := strconv.Atoi(parts[0])
		if err != nil {
			return Step{}, err
		}
		ipDist, err := util.StringToFloat64(parts[1])
		if err != nil {
			return Step{}, err
		}
		var text string
		if len(parts) == 3 {
			text = parts[2]
		}
		instructions[i] = NewInstructionPoint(pkg.InstructionKind(kindRaw), ipDist, text)
	}

	return NewStep(name, maneuver, geometry, dist, dur, instructions), nil
}
