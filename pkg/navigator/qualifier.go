package navigator

import (
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/geo"
	"github.com/lintang-b-s/naviguide/pkg/util"
)

// locationQualifier classifies raw fixes. qualify is pure; the router commits
// an accepted fix through accept, so a force-qualified fix (policy override)
// still becomes the staleness/jump reference for the next one.
type locationQualifier struct {
	cfg          Config
	lastAccepted *datastructure.LocationFix
}

func newLocationQualifier(cfg Config) *locationQualifier {
	return &locationQualifier{cfg: cfg}
}

// qualify returns nil when fix passes the default gates, otherwise the
// discard reason.
func (q *locationQualifier) qualify(fix datastructure.LocationFix) error {
	if fix.Accuracy() > q.cfg.MaxHorizontalAccuracy {
		return util.WrapErrorf(nil, util.ErrDiscardedLocation,
			"accuracy %.1fm above limit %.1fm", fix.Accuracy(), q.cfg.MaxHorizontalAccuracy)
	}

	if q.lastAccepted == nil {
		return nil
	}
	last := *q.lastAccepted

	if !fix.Time().After(last.Time()) {
		return util.WrapErrorf(nil, util.ErrDiscardedLocation,
			"fix at %s not newer than last accepted fix at %s", fix.Time(), last.Time())
	}

	dt := fix.Time().Sub(last.Time()).Seconds()
	dist := geo.HaversineDistanceMeter(last.Coord(), fix.Coord())
	if speed := dist / dt; speed > q.cfg.MaxPlausibleSpeed {
		return util.WrapErrorf(nil, util.ErrDiscardedLocation,
			"implausible jump of %.0fm in %.1fs (%.1f m/s)", dist, dt, speed)
	}

	return nil
}

func (q *locationQualifier) accept(fix datastructure.LocationFix) {
	q.lastAccepted = &fix
}
