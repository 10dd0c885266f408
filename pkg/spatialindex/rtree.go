package spatialindex

import (
	"math"

	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/tidwall/rtree"
)

type Rtree struct {
	tr *rtree.RTreeG[SegmentRef]
}

// SegmentRef addresses one polyline segment of the route: segment segmentIndex
// of step (legIndex, stepIndex). the tracker resolves the actual endpoints
// through the route, the index only stores positions.
type SegmentRef struct {
	legIndex     int
	stepIndex    int
	segmentIndex int
}

func (sr SegmentRef) GetLegIndex() int {
	return sr.legIndex
}

func (sr SegmentRef) GetStepIndex() int {
	return sr.stepIndex
}

func (sr SegmentRef) GetSegmentIndex() int {
	return sr.segmentIndex
}

func newSegmentRef(legIndex, stepIndex, segmentIndex int) SegmentRef {
	return SegmentRef{
		legIndex:     legIndex,
		stepIndex:    stepIndex,
		segmentIndex: segmentIndex,
	}
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[SegmentRef]
	return &Rtree{
		tr: &tr,
	}
}

// Build indexes every segment of every step of route, each leaf padded by
// boundingBoxRadius (in km) so radius queries also catch segments whose
// bounding box the query point sits just outside of.
func (rt *Rtree) Build(route *datastructure.Route, boundingBoxRadius float64) {
	for legIdx := 0; legIdx < route.NumberOfLegs(); legIdx++ {
		leg := route.GetLeg(legIdx)
		for stepIdx := 0; stepIdx < leg.NumberOfSteps(); stepIdx++ {
			step := leg.GetStep(stepIdx)
			for segIdx := 0; segIdx < step.NumberOfSegments(); segIdx++ {
				from, to := step.GetSegment(segIdx)

				lowerFromLat, lowerFromLon := geo.GetDestinationPoint(from.GetLat(), from.GetLon(), 225, boundingBoxRadius)
				upperFromLat, upperFromLon := geo.GetDestinationPoint(from.GetLat(), from.GetLon(), 45, boundingBoxRadius)

				lowerToLat, lowerToLon := geo.GetDestinationPoint(to.GetLat(), to.GetLon(), 225, boundingBoxRadius)
				upperToLat, upperToLon := geo.GetDestinationPoint(to.GetLat(), to.GetLon(), 45, boundingBoxRadius)

				minLat := math.Min(lowerFromLat, lowerToLat)
				minLon := math.Min(lowerFromLon, lowerToLon)
				maxLat := math.Max(upperFromLat, upperToLat)
				maxLon := math.Max(upperFromLon, upperToLon)

				rt.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat},
					newSegmentRef(legIdx, stepIdx, segIdx))
			}
		}
	}
}

// SearchWithinRadius search for all route segments within radius (in km) from the query point (qLat, qLon)
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []SegmentRef {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius)

	results := make([]SegmentRef, 0, 10)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data SegmentRef) bool {
			results = append(results, data)
			return true
		})
	return results
}
