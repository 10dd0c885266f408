package usecases

import (
	"context"
	"time"

	"github.com/lintang-b-s/naviguide/pkg/datastructure"
	"github.com/lintang-b-s/naviguide/pkg/tripstore"
	"go.uber.org/zap"
)

// handleEvent mirrors one router event into the trip store and fans it out to
// the session's subscribers, store first so a subscriber reacting to an
// arrival already finds its row. it runs on the router's pipeline goroutine,
// so the subscribers of a session never see its events out of order.
func (ss *SessionService) handleEvent(sess *session, ev datastructure.Event) {
	ss.recordEvent(sess, ev)

	sess.mu.Lock()
	subs := make([]func(datastructure.Event), 0, len(sess.subs))
	for _, deliver := range sess.subs {
		subs = append(subs, deliver)
	}
	sess.mu.Unlock()

	for _, deliver := range subs {
		deliver(ev)
	}
}

// recordEvent writes arrival and reroute outcomes to the trip store. store
// errors degrade to warnings, navigation never stalls on persistence.
func (ss *SessionService) recordEvent(sess *session, ev datastructure.Event) {
	if ss.trips == nil || sess.tripID == "" {
		return
	}

	ctx := context.Background()
	var err error
	switch ev.GetKind() {
	case datastructure.EVENT_DID_ARRIVE_AT_WAYPOINT:
		err = ss.trips.RecordArrival(ctx, sess.tripID, tripstore.Arrival{
			WaypointIndex:    ev.GetWaypointIndex(),
			WaypointName:     ev.GetWaypoint().GetName(),
			AutoAdvanced:     ev.HasAdvanced(),
			DistanceTraveled: ev.GetProgress().GetDistanceTraveled(),
			ArrivedAt:        time.Now(),
		})
	case datastructure.EVENT_ARRIVED_AT_DESTINATION:
		err = ss.trips.CompleteTrip(ctx, sess.tripID, "arrived", time.Now())
	case datastructure.EVENT_DID_REROUTE:
		err = ss.trips.RecordReroute(ctx, sess.tripID, tripstore.Reroute{
			Proactive:   ev.IsProactive(),
			Succeeded:   true,
			NewDistance: ev.GetRoute().GetDistance(),
			OccurredAt:  time.Now(),
		})
	case datastructure.EVENT_REROUTE_FAILED:
		err = ss.trips.RecordReroute(ctx, sess.tripID, tripstore.Reroute{
			Proactive:  ev.IsProactive(),
			Succeeded:  false,
			Error:      ev.GetError().Error(),
			OccurredAt: time.Now(),
		})
	default:
		return
	}

	if err != nil {
		ss.log.Warn("trip store write failed",
			zap.String("trip_id", sess.tripID),
			zap.String("event", datastructure.GetEventKindName(ev.GetKind())),
			zap.Error(err))
	}
}

// openTrip inserts the trip row for a new session. persistence is best
// effort: a failed insert logs and the session runs without a trip log.
func (ss *SessionService) openTrip(ctx context.Context, sessionID string,
	waypoints []datastructure.Waypoint, route *datastructure.Route) string {
	if ss.trips == nil {
		return ""
	}

	origin, destination := waypoints[0], waypoints[len(waypoints)-1]
	tripID, err := ss.trips.CreateTrip(ctx, tripstore.Trip{
		SessionID:       sessionID,
		OriginName:      origin.GetName(),
		DestinationName: destination.GetName(),
		OriginLat:       origin.GetCoord().GetLat(),
		OriginLon:       origin.GetCoord().GetLon(),
		DestinationLat:  destination.GetCoord().GetLat(),
		DestinationLon:  destination.GetCoord().GetLon(),
		PlannedDistance: route.GetDistance(),
		PlannedDuration: route.GetDuration(),
		StartedAt:       time.Now(),
	})
	if err != nil {
		ss.log.Warn("trip row insert failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return ""
	}
	return tripID
}
