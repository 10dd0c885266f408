package geo

import (
	"github.com/golang/geo/s2"
)

// ProjectPointToLineCoord projects snap onto the geodesic segment (pointA, pointB).
// the result always lies on the segment (s2.Project clamps to the endpoints).
func ProjectPointToLineCoord(pointA Coordinate, pointB Coordinate,
	snap Coordinate) Coordinate {
	pointAS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(pointA.Lat, pointA.Lon))
	pointBS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(pointB.Lat, pointB.Lon))
	snapS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(snap.Lat, snap.Lon))
	projection := s2.Project(snapS2, pointAS2, pointBS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// ProjectPointToLineParam projects snap onto the segment (pointA, pointB) and also
// returns the fraction t in [0,1] of the projection along the segment. degenerate
// segments (pointA == pointB) give t = 0.
func ProjectPointToLineParam(pointA Coordinate, pointB Coordinate,
	snap Coordinate) (Coordinate, float64) {
	projection := ProjectPointToLineCoord(pointA, pointB, snap)

	segLen := HaversineDistanceMeter(pointA, pointB)
	if segLen <= 0 {
		return projection, 0
	}
	t := HaversineDistanceMeter(pointA, projection) / segLen
	if t > 1 {
		t = 1
	}
	return projection, t
}
