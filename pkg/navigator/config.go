package navigator

import (
	"time"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/spf13/viper"
)

// Config carries every tuning knob of the router pipeline. thresholds and
// hysteresis are configuration, not hard-coded, so per-profile tuning
// (walking vs driving) stays out of the state machine.
type Config struct {
	// qualifier
	MaxHorizontalAccuracy float64 // meter, fixes above this are discarded
	MaxPlausibleSpeed     float64 // meter/second, jump detection vs last accepted fix

	// off-route judgment
	MinOffRouteRadius      float64 // meter, floor of the dynamic threshold
	OffRouteAccuracyFactor float64 // multiplies fix accuracy
	OffRouteSpeedGrace     float64 // second, multiplies fix speed
	OffRouteStreak         int     // consecutive over-threshold updates before off-route

	// projection
	StepSwitchBias      float64 // meter, hysteresis favoring the current step
	SegmentSearchRadius float64 // meter, r-tree candidate query radius

	// waypoint arrival
	ApproachDistance float64 // meter, approach band around a leg's terminal waypoint
	ArrivalRadius    float64 // meter

	// reroute
	RecalculationTimeout time.Duration
	RerouteBackoff       time.Duration // wait after a failed recalculation, 0 = retry on next trigger
}

func DefaultConfig() Config {
	return Config{
		MaxHorizontalAccuracy:  pkg.MAX_HORIZONTAL_ACCURACY_METER,
		MaxPlausibleSpeed:      pkg.MAX_PLAUSIBLE_SPEED_MS,
		MinOffRouteRadius:      pkg.MIN_OFF_ROUTE_RADIUS_METER,
		OffRouteAccuracyFactor: pkg.OFF_ROUTE_ACCURACY_FACTOR,
		OffRouteSpeedGrace:     pkg.OFF_ROUTE_SPEED_GRACE_SECOND,
		OffRouteStreak:         pkg.OFF_ROUTE_STREAK,
		StepSwitchBias:         pkg.STEP_SWITCH_BIAS_METER,
		SegmentSearchRadius:    pkg.SEGMENT_SEARCH_RADIUS_METER,
		ApproachDistance:       pkg.APPROACH_DISTANCE_METER,
		ArrivalRadius:          pkg.ARRIVAL_RADIUS_METER,
		RecalculationTimeout:   pkg.DEFAULT_RECALCULATION_TIMEOUT_SECOND * time.Second,
		RerouteBackoff:         0,
	}
}

// NewConfigFromViper reads the navigator.* keys, falling back to the defaults
// above for anything the config file leaves out.
func NewConfigFromViper() Config {
	def := DefaultConfig()
	viper.SetDefault("navigator.max_horizontal_accuracy_meter", def.MaxHorizontalAccuracy)
	viper.SetDefault("navigator.max_plausible_speed_ms", def.MaxPlausibleSpeed)
	viper.SetDefault("navigator.min_off_route_radius_meter", def.MinOffRouteRadius)
	viper.SetDefault("navigator.off_route_accuracy_factor", def.OffRouteAccuracyFactor)
	viper.SetDefault("navigator.off_route_speed_grace_second", def.OffRouteSpeedGrace)
	viper.SetDefault("navigator.off_route_streak", def.OffRouteStreak)
	viper.SetDefault("navigator.step_switch_bias_meter", def.StepSwitchBias)
	viper.SetDefault("navigator.segment_search_radius_meter", def.SegmentSearchRadius)
	viper.SetDefault("navigator.approach_distance_meter", def.ApproachDistance)
	viper.SetDefault("navigator.arrival_radius_meter", def.ArrivalRadius)
	viper.SetDefault("navigator.recalculation_timeout", def.RecalculationTimeout)
	viper.SetDefault("navigator.reroute_backoff", def.RerouteBackoff)

	return Config{
		MaxHorizontalAccuracy:  viper.GetFloat64("navigator.max_horizontal_accuracy_meter"),
		MaxPlausibleSpeed:      viper.GetFloat64("navigator.max_plausible_speed_ms"),
		MinOffRouteRadius:      viper.GetFloat64("navigator.min_off_route_radius_meter"),
		OffRouteAccuracyFactor: viper.GetFloat64("navigator.off_route_accuracy_factor"),
		OffRouteSpeedGrace:     viper.GetFloat64("navigator.off_route_speed_grace_second"),
		OffRouteStreak:         viper.GetInt("navigator.off_route_streak"),
		StepSwitchBias:         viper.GetFloat64("navigator.step_switch_bias_meter"),
		SegmentSearchRadius:    viper.GetFloat64("navigator.segment_search_radius_meter"),
		ApproachDistance:       viper.GetFloat64("navigator.approach_distance_meter"),
		ArrivalRadius:          viper.GetFloat64("navigator.arrival_radius_meter"),
		RecalculationTimeout:   viper.GetDuration("navigator.recalculation_timeout"),
		RerouteBackoff:         viper.GetDuration("navigator.reroute_backoff"),
	}
}
