package controllers

import (
	"context"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
)

type NavigationService interface {
	CreateSession(ctx context.Context, waypoints []datastructure.Waypoint) (string, *datastructure.Route, bool, error)
	SessionProgress(sessionID string) (datastructure.RouteProgress, pkg.SessionState, pkg.RerouteState, bool, error)
	ConsumeFix(sessionID string, fix datastructure.LocationFix) error
	AdvanceLeg(sessionID string) error
	RequestReroute(sessionID string) error
	CloseSession(sessionID string) error
	Subscribe(sessionID string, deliver func(datastructure.Event)) (func(), error)
}
