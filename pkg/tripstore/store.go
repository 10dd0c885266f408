package tripstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lintang-b-s/naviguide/pkg/util"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// TripStore persists navigation session summaries in SQLite. sqlite supports a
// single writer, so every mutating call serializes on writeMu in addition to
// the single-connection pool.
type TripStore struct {
	log     *zap.Logger
	conn    *sql.DB
	writeMu sync.Mutex
}

// Trip is one navigation session summary row.
type Trip struct {
	TripID          string
	SessionID       string
	OriginName      string
	DestinationName string
	OriginLat       float64
	OriginLon       float64
	DestinationLat  float64
	DestinationLon  float64
	PlannedDistance float64 // meter
	PlannedDuration float64 // second
	State           string
	RerouteCount    int
	FailedReroutes  int
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// Arrival is one recorded waypoint arrival of a trip.
type Arrival struct {
	WaypointIndex    int
	WaypointName     string
	AutoAdvanced     bool
	DistanceTraveled float64 // meter
	ArrivedAt        time.Time
}

// Reroute is one recorded reroute attempt of a trip.
type Reroute struct {
	Proactive   bool
	Succeeded   bool
	Error       string
	NewDistance float64 // meter, 0 when the attempt failed
	OccurredAt  time.Time
}

func NewTripStore(log *zap.Logger, path string) (*TripStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "opening trip database %s", path)
	}

	// one connection plus writeMu keeps every write serialized
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "pinging trip database %s", path)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			log.Warn("trip database pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	log.Info("trip database opened", zap.String("path", path))
	return &TripStore{log: log, conn: conn}, nil
}

func (s *TripStore) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the tables if they don't exist, from the embedded
// schema.sql.
func (s *TripStore) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.ExecContext(ctx, schemaSQL); err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError, "creating trip schema")
	}
	return nil
}

// CreateTrip inserts a new trip row and returns its id. an empty TripID gets a
// fresh uuid.
func (s *TripStore) CreateTrip(ctx context.Context, t Trip) (string, error) {
	if t.TripID == "" {
		t.TripID = uuid.New().String()
	}
	if t.State == "" {
		t.State = "navigating"
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO trips (
			trip_id, session_id, origin_name, destination_name,
			origin_lat, origin_lon, destination_lat, destination_lon,
			planned_distance_meter, planned_duration_second, state, started_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TripID, t.SessionID, t.OriginName, t.DestinationName,
		t.OriginLat, t.OriginLon, t.DestinationLat, t.DestinationLon,
		t.PlannedDistance, t.PlannedDuration, t.State,
		t.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", util.WrapErrorf(err, util.ErrInternalServerError, "inserting trip %s", t.TripID)
	}
	return t.TripID, nil
}

// RecordArrival appends one waypoint arrival to the trip log.
func (s *TripStore) RecordArrival(ctx context.Context, tripID string, a Arrival) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO trip_arrivals (
			trip_id, waypoint_index, waypoint_name, auto_advanced,
			distance_traveled_meter, arrived_at_utc
		) VALUES (?, ?, ?, ?, ?, ?)`,
		tripID, a.WaypointIndex, a.WaypointName, boolToInt(a.AutoAdvanced),
		a.DistanceTraveled, a.ArrivedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError, "recording arrival for trip %s", tripID)
	}
	return nil
}

// RecordReroute appends one reroute attempt and bumps the trip's counters in
// the same transaction.
func (s *TripStore) RecordReroute(ctx context.Context, tripID string, r Reroute) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError, "beginning reroute transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trip_reroutes (
			trip_id, proactive, succeeded, error, new_distance_meter, occurred_at_utc
		) VALUES (?, ?, ?, ?, ?, ?)`,
		tripID, boolToInt(r.Proactive), boolToInt(r.Succeeded),
		nullableString(r.Error), r.NewDistance, r.OccurredAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError, "recording reroute for trip %s", tripID)
	}

	counter := "reroute_count"
	if !r.Succeeded {
		counter = "failed_reroute_count"
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE trips SET "+counter+" = "+counter+" + 1 WHERE trip_id = ?", tripID); err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError, "bumping %s for trip %s", counter, tripID)
	}

	if err := tx.Commit(); err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError, "committing reroute for trip %s", tripID)
	}
	return nil
}

// CompleteTrip stamps the terminal state and completion time.
func (s *TripStore) CompleteTrip(ctx context.Context, tripID, state string, completedAt time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.conn.ExecContext(ctx,
		"UPDATE trips SET state = ?, completed_at_utc = ? WHERE trip_id = ?",
		state, completedAt.UTC().Format(time.RFC3339), tripID,
	)
	if err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError, "completing trip %s", tripID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return util.WrapErrorf(nil, util.ErrNotFound, "trip %s not found", tripID)
	}
	return nil
}

func (s *TripStore) GetTrip(ctx context.Context, tripID string) (*Trip, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT trip_id, session_id, origin_name, destination_name,
			origin_lat, origin_lon, destination_lat, destination_lon,
			planned_distance_meter, planned_duration_second, state,
			reroute_count, failed_reroute_count, started_at_utc, completed_at_utc
		FROM trips WHERE trip_id = ?`, tripID)

	var t Trip
	var startedAt string
	var completedAt sql.NullString
	err := row.Scan(&t.TripID, &t.SessionID, &t.OriginName, &t.DestinationName,
		&t.OriginLat, &t.OriginLon, &t.DestinationLat, &t.DestinationLon,
		&t.PlannedDistance, &t.PlannedDuration, &t.State,
		&t.RerouteCount, &t.FailedReroutes, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, util.WrapErrorf(err, util.ErrNotFound, "trip %s not found", tripID)
	}
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "loading trip %s", tripID)
	}

	if t.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "parsing started_at of trip %s", tripID)
	}
	if completedAt.Valid {
		parsed, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrInternalServerError, "parsing completed_at of trip %s", tripID)
		}
		t.CompletedAt = &parsed
	}
	return &t, nil
}

// GetTripArrivals lists the recorded arrivals of a trip in arrival order.
func (s *TripStore) GetTripArrivals(ctx context.Context, tripID string) ([]Arrival, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT waypoint_index, waypoint_name, auto_advanced,
			distance_traveled_meter, arrived_at_utc
		FROM trip_arrivals WHERE trip_id = ? ORDER BY id`, tripID)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "loading arrivals of trip %s", tripID)
	}
	defer rows.Close()

	var arrivals []Arrival
	for rows.Next() {
		var a Arrival
		var autoAdvanced int
		var arrivedAt string
		if err := rows.Scan(&a.WaypointIndex, &a.WaypointName, &autoAdvanced,
			&a.DistanceTraveled, &arrivedAt); err != nil {
			return nil, util.WrapErrorf(err, util.ErrInternalServerError, "scanning arrival of trip %s", tripID)
		}
		a.AutoAdvanced = autoAdvanced != 0
		if a.ArrivedAt, err = time.Parse(time.RFC3339, arrivedAt); err != nil {
			return nil, util.WrapErrorf(err, util.ErrInternalServerError, "parsing arrival time of trip %s", tripID)
		}
		arrivals = append(arrivals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "iterating arrivals of trip %s", tripID)
	}
	return arrivals, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
