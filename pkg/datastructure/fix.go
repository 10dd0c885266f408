package datastructure

import (
	"time"

	"github.com/lintang-b-s/naviguide/pkg/geo"
)

// LocationFix is one raw reading from the positioning source. course and speed
// are negative when the source could not observe them.
type LocationFix struct {
	coord     geo.Coordinate
	time      time.Time
	accuracy  float64 // horizontal accuracy radius, meter
	course    float64 // degree, clockwise from true north
	speed     float64 // meter/second
}

func NewLocationFix(lat, lon float64, t time.Time, accuracy, course, speed float64) LocationFix {
	return LocationFix{
		coord:    geo.NewCoordinate(lat, lon),
		time:     t,
		accuracy: accuracy,
		course:   course,
		speed:    speed,
	}
}

func (lf LocationFix) Coord() geo.Coordinate {
	return lf.coord
}

func (lf LocationFix) Lat() float64 {
	return lf.coord.GetLat()
}

func (lf LocationFix) Lon() float64 {
	return lf.coord.GetLon()
}

func (lf LocationFix) Time() time.Time {
	return lf.time
}

func (lf LocationFix) Accuracy() float64 {
	return lf.accuracy
}

func (lf LocationFix) Course() float64 {
	return lf.course
}

func (lf LocationFix) Speed() float64 {
	return lf.speed
}

func (lf LocationFix) HasCourse() bool {
	return lf.course >= 0
}

func (lf LocationFix) HasSpeed() bool {
	return lf.speed >= 0
}

// QualifiedLocation wraps a fix that passed qualification. the progress tracker
// only accepts this type, so an unqualified fix cannot reach it.
type QualifiedLocation struct {
	fix LocationFix
}

func NewQualifiedLocation(fix LocationFix) QualifiedLocation {
	return QualifiedLocation{fix: fix}
}

func (ql QualifiedLocation) Fix() LocationFix {
	return ql.fix
}
