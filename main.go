package main

import (
	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
)

// builds the bundled demo route fixture for the simulator: Stasiun Pondok
// Cina south along Jalan Margonda Raya to Margo City, then on to Balai Kota
// Depok.
func main() {
	leg0 := datastructure.NewLeg([]datastructure.Step{
		datastructure.NewStep("Jalan Margonda Raya", "depart",
			[]geo.Coordinate{
				geo.NewCoordinate(-6.36913, 106.83178),
				geo.NewCoordinate(-6.37071, 106.83152),
				geo.NewCoordinate(-6.37232, 106.83128),
				geo.NewCoordinate(-6.37350, 106.83110),
			}, 0, 65,
			[]datastructure.InstructionPoint{
				datastructure.NewInstructionPoint(pkg.VISUAL_INSTRUCTION, 0,
					"Head south toward Jalan Margonda Raya"),
				datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 0,
					"Head south toward Jalan Margonda Raya"),
				datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 410,
					"you have arrived at Margo City"),
			}),
	}, 0, 0)

	leg1 := datastructure.NewLeg([]datastructure.Step{
		datastructure.NewStep("Jalan Margonda Raya", "depart",
			[]geo.Coordinate{
				geo.NewCoordinate(-6.37350, 106.83110),
				geo.NewCoordinate(-6.37661, 106.83063),
				geo.NewCoordinate(-6.38020, 106.83002),
				geo.NewCoordinate(-6.38391, 106.82912),
				geo.NewCoordinate(-6.38736, 106.82752),
			}, 0, 210,
			[]datastructure.InstructionPoint{
				datastructure.NewInstructionPoint(pkg.VISUAL_INSTRUCTION, 0,
					"Head south toward Jalan Margonda Raya"),
				datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 0,
					"Head south toward Jalan Margonda Raya"),
				datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 1180,
					"In four hundred meters, Turn right onto Jalan Margonda Raya Pelebaran"),
				datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 1500,
					"Turn right onto Jalan Margonda Raya Pelebaran"),
			}),
		datastructure.NewStep("Jalan Margonda Raya Pelebaran", "turn-right",
			[]geo.Coordinate{
				geo.NewCoordinate(-6.38736, 106.82752),
				geo.NewCoordinate(-6.39044, 106.82545),
				geo.NewCoordinate(-6.39408, 106.82236),
			}, 0, 110,
			[]datastructure.InstructionPoint{
				datastructure.NewInstructionPoint(pkg.VISUAL_INSTRUCTION, 0,
					"Turn right onto Jalan Margonda Raya Pelebaran"),
				datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 420,
					"In four hundred meters, you will arrive at your destination"),
				datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 740,
					"you have arrived at your destination"),
			}),
	}, 0, 0)

	route, err := datastructure.NewRoute(
		[]datastructure.Leg{leg0, leg1},
		[]datastructure.Waypoint{
			datastructure.NewWaypoint(-6.36913, 106.83178, "Stasiun Pondok Cina"),
			datastructure.NewWaypoint(-6.37350, 106.83110, "Margo City"),
			datastructure.NewWaypoint(-6.39408, 106.82236, "Balai Kota Depok"),
		})
	if err != nil {
		panic(err)
	}

	if err := route.WriteRoute("./data/sample.route"); err != nil {
		panic(err)
	}
	if _, err := datastructure.ReadRoute("./data/sample.route"); err != nil {
		panic(err)
	}
}
