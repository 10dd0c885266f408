package navigator

import (
	"testing"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
)

func schedulerStep() datastructure.Step {
	return datastructure.NewStep("Jalan Margonda Raya", "depart",
		[]geo.Coordinate{eastCoord(0), eastCoord(1000)}, 0, 120,
		[]datastructure.InstructionPoint{
			datastructure.NewInstructionPoint(pkg.VISUAL_INSTRUCTION, 0, "banner start"),
			datastructure.NewInstructionPoint(pkg.VISUAL_INSTRUCTION, 500, "banner mid"),
			datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 600, "voice far"),
			datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 920, "voice near"),
		})
}

func firedTexts(points []datastructure.InstructionPoint) []string {
	texts := make([]string, 0, len(points))
	for _, ip := range points {
		texts = append(texts, ip.GetText())
	}
	return texts
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSchedulerFiresInAscendingOrderOnce(t *testing.T) {
	step := schedulerStep()
	s := newInstructionScheduler()

	script := []struct {
		traveled float64
		want     []string
	}{
		{traveled: 100, want: []string{"banner start"}},
		{traveled: 300, want: nil},
		{traveled: 650, want: []string{"banner mid", "voice far"}},
		{traveled: 650, want: nil},
		{traveled: 960, want: []string{"voice near"}},
		{traveled: 1000, want: nil},
	}
	for i, tt := range script {
		got := firedTexts(s.collect(step, tt.traveled))
		if !equalStrings(got, tt.want) {
			t.Errorf("script[%d] traveled %.0f: fired %v, want %v", i, tt.traveled, got, tt.want)
		}
	}
}

func TestSchedulerDrainsCompletedStep(t *testing.T) {
	step := schedulerStep()
	s := newInstructionScheduler()

	if got := firedTexts(s.collect(step, 100)); !equalStrings(got, []string{"banner start"}) {
		t.Fatalf("fired %v, want the start banner", got)
	}

	// the step was crossed in one jump: everything left fires, ascending
	got := firedTexts(s.collectCompleted(step))
	want := []string{"banner mid", "voice far", "voice near"}
	if !equalStrings(got, want) {
		t.Errorf("completed step fired %v, want %v", got, want)
	}

	if got := s.collectCompleted(step); len(got) != 0 {
		t.Errorf("drained step fired %v again", got)
	}
}

func TestSchedulerResetRearmsTriggers(t *testing.T) {
	step := schedulerStep()
	s := newInstructionScheduler()

	s.collect(step, 1000)
	s.reset()

	if got := firedTexts(s.collect(step, 100)); !equalStrings(got, []string{"banner start"}) {
		t.Errorf("after reset fired %v, want the start banner", got)
	}
}

func TestSchedulerTieGoesToVisual(t *testing.T) {
	step := datastructure.NewStep("Jalan Juanda", "turn-right",
		[]geo.Coordinate{eastCoord(0), eastCoord(1000)}, 0, 60,
		[]datastructure.InstructionPoint{
			datastructure.NewInstructionPoint(pkg.SPOKEN_INSTRUCTION, 400, "voice"),
			datastructure.NewInstructionPoint(pkg.VISUAL_INSTRUCTION, 400, "banner"),
		})
	s := newInstructionScheduler()

	got := firedTexts(s.collect(step, 450))
	if !equalStrings(got, []string{"banner", "voice"}) {
		t.Errorf("tied triggers fired %v, want banner before voice", got)
	}
}
