package geo

import (
	gopolyline "github.com/twpayne/go-polyline"
)

// PoylineFromCoords encodes coords as a google polyline (precision 5) string.
func PoylineFromCoords(coords []Coordinate) string {
	buf := make([][]float64, len(coords))
	for i, c := range coords {
		buf[i] = []float64{c.Lat, c.Lon}
	}
	return string(gopolyline.EncodeCoords(buf))
}

// CoordsFromPolyline decodes a google polyline (precision 5) string.
func CoordsFromPolyline(poly string) ([]Coordinate, error) {
	decoded, _, err := gopolyline.DecodeCoords([]byte(poly))
	if err != nil {
		return nil, err
	}
	coords := make([]Coordinate, len(decoded))
	for i, c := range decoded {
		coords[i] = NewCoordinate(c[0], c[1])
	}
	return coords, nil
}
