package directions

import (
	"testing"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeManeuver(t *testing.T) {
	testCases := []struct {
		name      string
		step      osrmStep
		clockwise bool
		want      string
	}{
		{
			name: "depart with bearing",
			step: osrmStep{Name: "Jalan Margonda Raya",
				Maneuver: osrmManeuver{Type: "depart", BearingAfter: 90}},
			clockwise: true,
			want:      "Head East toward Jalan Margonda Raya",
		},
		{
			name:      "depart on an unnamed road",
			step:      osrmStep{Maneuver: osrmManeuver{Type: "depart", BearingAfter: 350}},
			clockwise: true,
			want:      "Head North",
		},
		{
			name: "plain right turn",
			step: osrmStep{Name: "Jalan Ir. H. Juanda",
				Maneuver: osrmManeuver{Type: "turn", Modifier: "right"}},
			clockwise: true,
			want:      "Turn right onto Jalan Ir. H. Juanda",
		},
		{
			name:      "sharp left on an unnamed road",
			step:      osrmStep{Maneuver: osrmManeuver{Type: "turn", Modifier: "sharp left"}},
			clockwise: true,
			want:      "Turn sharp left",
		},
		{
			name: "end of road counts as a turn",
			step: osrmStep{Name: "Jalan Raya Bogor",
				Maneuver: osrmManeuver{Type: "end of road", Modifier: "left"}},
			clockwise: true,
			want:      "Turn left onto Jalan Raya Bogor",
		},
		{
			name: "straight turn reads as continue",
			step: osrmStep{Name: "Jalan Raya Bogor",
				Maneuver: osrmManeuver{Type: "turn", Modifier: "straight"}},
			clockwise: true,
			want:      "Continue onto Jalan Raya Bogor",
		},
		{
			name: "u-turn",
			step: osrmStep{Name: "Jalan Margonda Raya",
				Maneuver: osrmManeuver{Type: "turn", Modifier: "uturn"}},
			clockwise: true,
			want:      "Make U-turn onto Jalan Margonda Raya",
		},
		{
			name: "new name",
			step: osrmStep{Name: "Jalan Akses UI",
				Maneuver: osrmManeuver{Type: "new name", Modifier: "straight"}},
			clockwise: true,
			want:      "Continue onto Jalan Akses UI",
		},
		{
			name: "merge keeps left",
			step: osrmStep{Name: "Tol Jagorawi",
				Maneuver: osrmManeuver{Type: "merge", Modifier: "slight left"}},
			clockwise: true,
			want:      "Keep left to continue on Tol Jagorawi",
		},
		{
			name: "fork keeps right",
			step: osrmStep{Name: "Tol Jagorawi",
				Maneuver: osrmManeuver{Type: "fork", Modifier: "slight right"}},
			clockwise: true,
			want:      "Keep right continue on Tol Jagorawi",
		},
		{
			name: "roundabout with exit number",
			step: osrmStep{Name: "Jalan Juanda",
				Maneuver: osrmManeuver{Type: "roundabout", Modifier: "right", Exit: 2}},
			clockwise: true,
			want:      "At Roundabout, take the exit point 2 clockwise",
		},
		{
			name: "counter-clockwise roundabout",
			step: osrmStep{Name: "Jalan Juanda",
				Maneuver: osrmManeuver{Type: "rotary", Exit: 3}},
			clockwise: false,
			want:      "At Roundabout, take the exit point 3 counter-clockwise",
		},
		{
			name:      "roundabout entry without exit info",
			step:      osrmStep{Maneuver: osrmManeuver{Type: "roundabout"}},
			clockwise: true,
			want:      "Enter the roundabout",
		},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeManeuver(tt.step, tt.clockwise))
		})
	}
}

func TestManeuverSlug(t *testing.T) {
	assert.Equal(t, "depart", maneuverSlug(osrmManeuver{Type: "depart"}))
	assert.Equal(t, "turn-right", maneuverSlug(osrmManeuver{Type: "turn", Modifier: "right"}))
	assert.Equal(t, "turn-sharp-left", maneuverSlug(osrmManeuver{Type: "turn", Modifier: "sharp left"}))
}

func TestSpellMeters(t *testing.T) {
	assert.Equal(t, "four hundred meters", spellMeters(400))
	assert.Equal(t, "one kilometer", spellMeters(1000))
	assert.Equal(t, "350 meters", spellMeters(350))
}

func TestLowerFirst(t *testing.T) {
	assert.Equal(t, "turn right onto X", lowerFirst("Turn right onto X"))
	assert.Equal(t, "at Roundabout", lowerFirst("At Roundabout"))
	assert.Equal(t, "", lowerFirst(""))
}

func TestStepTriggersShortStep(t *testing.T) {
	// too short for the far announcement, the near one clamps to the step start
	st := osrmStep{Distance: 60}
	points := stepTriggers(st, "banner", "far text", "near text", false)
	require.Len(t, points, 2)

	assert.Equal(t, pkg.VISUAL_INSTRUCTION, points[0].GetKind())
	assert.Equal(t, "banner", points[0].GetText())
	assert.Equal(t, pkg.SPOKEN_INSTRUCTION, points[1].GetKind())
	assert.Equal(t, "near text", points[1].GetText())
	assert.InDelta(t, 0, points[1].GetDistance(), 1e-9)

	// between the two announce distances only the near one fires
	st = osrmStep{Distance: 300}
	points = stepTriggers(st, "banner", "far text", "near text", false)
	require.Len(t, points, 2)
	assert.InDelta(t, 220, points[1].GetDistance(), 1e-9)
}

func TestBuildLegRejectsEmptyLeg(t *testing.T) {
	_, err := buildLeg(osrmLeg{
		Steps: []osrmStep{{Maneuver: osrmManeuver{Type: "arrive"}}},
	}, true, true, "", true)
	require.Error(t, err)
	assertCode(t, err, util.ErrMalformedRoute)
}

func TestArrivalTextsNameTheStop(t *testing.T) {
	far, near := arrivalTexts(false, "Stasiun Pondok Cina")
	assert.Equal(t, "In four hundred meters, you will arrive at Stasiun Pondok Cina", far)
	assert.Equal(t, "you have arrived at Stasiun Pondok Cina", near)

	far, near = arrivalTexts(true, "Stasiun Pondok Cina")
	assert.Equal(t, "In four hundred meters, you will arrive at your destination", far)
	assert.Equal(t, "you have arrived at your destination", near)

	_, near = arrivalTexts(false, "")
	assert.Equal(t, "you have arrived at your stop", near)
}
