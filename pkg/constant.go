package pkg

// enum of session_state
type SessionState uint8

const (
	NAVIGATING SessionState = iota
	ARRIVED
	CLOSED
)

func GetSessionStateName(state SessionState) string {
	switch state {
	case NAVIGATING:
		return "navigating"
	case ARRIVED:
		return "arrived"
	case CLOSED:
		return "closed"
	default:
		return "unknown"
	}
}

// enum of reroute_state
type RerouteState uint8

const (
	REROUTE_IDLE RerouteState = iota
	REROUTE_PENDING_PERMISSION
	REROUTE_RECALCULATING
	REROUTE_APPLYING
)

func GetRerouteStateName(state RerouteState) string {
	switch state {
	case REROUTE_IDLE:
		return "idle"
	case REROUTE_PENDING_PERMISSION:
		return "pending_permission"
	case REROUTE_RECALCULATING:
		return "recalculating"
	case REROUTE_APPLYING:
		return "applying"
	default:
		return "unknown"
	}
}

// enum of instruction_kind
type InstructionKind uint8

const (
	VISUAL_INSTRUCTION InstructionKind = iota
	SPOKEN_INSTRUCTION
)

func GetInstructionKindName(kind InstructionKind) string {
	switch kind {
	case VISUAL_INSTRUCTION:
		return "visual"
	case SPOKEN_INSTRUCTION:
		return "spoken"
	default:
		return "unknown"
	}
}

const (
	MAX_HORIZONTAL_ACCURACY_METER = 50.0
	MAX_PLAUSIBLE_SPEED_MS        = 250.0 / 3.6

	MIN_OFF_ROUTE_RADIUS_METER   = 50.0
	OFF_ROUTE_ACCURACY_FACTOR    = 1.5
	OFF_ROUTE_SPEED_GRACE_SECOND = 3.0
	OFF_ROUTE_STREAK             = 2

	STEP_SWITCH_BIAS_METER      = 5.0
	SEGMENT_SEARCH_RADIUS_METER = 250.0

	APPROACH_DISTANCE_METER = 250.0
	ARRIVAL_RADIUS_METER    = 30.0
	STEP_COMPLETION_EPS     = 1e-3

	WAYPOINT_PRESERVE_TOLERANCE_METER    = 250.0
	DEFAULT_RECALCULATION_TIMEOUT_SECOND = 10
)

const (
	FAR_ANNOUNCE_METER  = 400.0
	NEAR_ANNOUNCE_METER = 80.0

	DIRECTIONS_TIMEOUT_SECOND  = 15
	DIRECTIONS_RATE_PER_SECOND = 4
	DIRECTIONS_RATE_BURST      = 2
	ROUTE_CACHE_SIZE           = 128
	CACHE_COORD_PRECISION      = 1e-4 // ~11 meter, recalculations nearby hit the same entry

	API_RATE_PER_SECOND = 50
	API_RATE_BURST      = 100
)
