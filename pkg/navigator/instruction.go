package navigator

import (
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
)

// instructionScheduler tracks which trigger points of the active step already
// fired, one cursor per instruction kind. cursors reset whenever the step
// changes, so each trigger fires at most once per step instance.
type instructionScheduler struct {
	visualCursor int
	spokenCursor int
}

func newInstructionScheduler() *instructionScheduler {
	return &instructionScheduler{}
}

func (s *instructionScheduler) reset() {
	s.visualCursor = 0
	s.spokenCursor = 0
}

// collect fires every unconsumed trigger of step whose distance is now passed,
// merged across kinds in ascending trigger-distance order. completing a step
// (traveled == step distance) fires everything left, so a large jump across a
// step boundary skips no trigger.
func (s *instructionScheduler) collect(step datastructure.Step, traveled float64) []datastructure.InstructionPoint {
	visual := step.GetVisualInstructions()
	spoken := step.GetSpokenInstructions()

	var fired []datastructure.InstructionPoint
	for {
		nextVisual := s.visualCursor < len(visual) && visual[s.visualCursor].GetDistance() <= traveled
		nextSpoken := s.spokenCursor < len(spoken) && spoken[s.spokenCursor].GetDistance() <= traveled
		switch {
		case nextVisual && nextSpoken:
			if visual[s.visualCursor].GetDistance() <= spoken[s.spokenCursor].GetDistance() {
				fired = append(fired, visual[s.visualCursor])
				s.visualCursor++
			} else {
				fired = append(fired, spoken[s.spokenCursor])
				s.spokenCursor++
			}
		case nextVisual:
			fired = append(fired, visual[s.visualCursor])
			s.visualCursor++
		case nextSpoken:
			fired = append(fired, spoken[s.spokenCursor])
			s.spokenCursor++
		default:
			return fired
		}
	}
}

// collectCompleted drains the remaining triggers of a step that was fully
// crossed during one update.
func (s *instructionScheduler) collectCompleted(step datastructure.Step) []datastructure.InstructionPoint {
	return s.collect(step, step.GetDistance())
}
