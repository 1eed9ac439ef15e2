package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string // SSL mode (disable, require, verify-ca, verify-full). Default: disable.
}

// PostgresDB wraps a PostgreSQL connection pool for reference and diagnostic
// data: waypoints/ATS routes seen across parses, and the per-parse error
// diagnostics of which ClickHouse keeps only the count and the first
// message.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, escapedPassword, cfg.Host, cfg.Port, cfg.Database, sslMode)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// Pool returns the underlying connection pool for direct queries.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	-- Reference data: waypoints and lat/long points seen in parsed routes.
	CREATE TABLE IF NOT EXISTS waypoints (
		name            TEXT PRIMARY KEY,
		latitude        DOUBLE PRECISION NOT NULL,
		longitude       DOUBLE PRECISION NOT NULL,
		source_count    INTEGER NOT NULL DEFAULT 1,
		first_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- Reference data: ATS route designators and the pair of points they
	-- most recently connected.
	CREATE TABLE IF NOT EXISTS ats_routes (
		id                  SERIAL PRIMARY KEY,
		designator          TEXT NOT NULL,
		entry_point         TEXT NOT NULL,
		exit_point          TEXT NOT NULL,
		observation_count   INTEGER NOT NULL DEFAULT 1,
		first_seen          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(designator, entry_point, exit_point)
	);

	CREATE INDEX IF NOT EXISTS idx_ats_routes_designator ON ats_routes(designator);

	-- One row per element of a route sequence stored against an ats_routes
	-- row, in sequence order. Rows are keyed by the ats_routes id, not by a
	-- parse event.
	CREATE TABLE IF NOT EXISTS ats_route_legs (
		route_id            INTEGER NOT NULL REFERENCES ats_routes(id) ON DELETE CASCADE,
		sequence            INTEGER NOT NULL,
		point_name          TEXT NOT NULL,
		rules               TEXT NOT NULL,
		speed               TEXT,
		level               TEXT,
		PRIMARY KEY (route_id, sequence)
	);

	-- Per-diagnostic rows for a stored parse event (joined to ClickHouse's
	-- parse_events.id via parse_event_id).
	CREATE TABLE IF NOT EXISTS error_diagnostics (
		id              SERIAL PRIMARY KEY,
		parse_event_id  BIGINT NOT NULL,
		message         TEXT NOT NULL,
		span_start      INTEGER NOT NULL,
		span_end        INTEGER NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_error_diagnostics_event ON error_diagnostics(parse_event_id);

	-- Reviewer annotations on a stored parse event, for building a
	-- regression corpus out of real traffic.
	CREATE TABLE IF NOT EXISTS golden_annotations (
		parse_event_id  BIGINT PRIMARY KEY,
		is_golden       BOOLEAN NOT NULL DEFAULT FALSE,
		annotation      TEXT,
		expected_json   JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	_, err := d.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	_, _ = d.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_golden_is_golden ON golden_annotations(is_golden) WHERE is_golden = TRUE`)

	return nil
}

// Waypoint represents a named point seen in one or more parsed routes,
// with the coordinate resolved for it (when known).
type Waypoint struct {
	Name        string
	Latitude    float64
	Longitude   float64
	SourceCount int
	FirstSeen   time.Time
	LastSeen    time.Time
}

// UpsertWaypoint inserts or updates a waypoint record.
func (d *PostgresDB) UpsertWaypoint(ctx context.Context, w Waypoint) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO waypoints (name, latitude, longitude, source_count, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			source_count = waypoints.source_count + 1,
			last_seen = EXCLUDED.last_seen
	`, w.Name, w.Latitude, w.Longitude, w.SourceCount, w.FirstSeen, w.LastSeen)
	return err
}

// GetWaypoint retrieves a waypoint by name.
func (d *PostgresDB) GetWaypoint(ctx context.Context, name string) (*Waypoint, error) {
	var w Waypoint
	err := d.pool.QueryRow(ctx, `
		SELECT name, latitude, longitude, source_count, first_seen, last_seen
		FROM waypoints WHERE name = $1
	`, name).Scan(&w.Name, &w.Latitude, &w.Longitude, &w.SourceCount, &w.FirstSeen, &w.LastSeen)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWaypoints returns waypoints seen in at least minSources distinct
// parses, most-observed first.
func (d *PostgresDB) ListWaypoints(ctx context.Context, minSources int) ([]Waypoint, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT name, latitude, longitude, source_count, first_seen, last_seen
		FROM waypoints WHERE source_count >= $1
		ORDER BY source_count DESC
	`, minSources)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waypoints []Waypoint
	for rows.Next() {
		var w Waypoint
		if err := rows.Scan(&w.Name, &w.Latitude, &w.Longitude, &w.SourceCount, &w.FirstSeen, &w.LastSeen); err != nil {
			return nil, fmt.Errorf("scan waypoint: %w", err)
		}
		waypoints = append(waypoints, w)
	}
	return waypoints, rows.Err()
}

// ATSRoute represents an ATS route designator and the point pair it most
// recently connected.
type ATSRoute struct {
	ID               int
	Designator       string
	EntryPoint       string
	ExitPoint        string
	ObservationCount int
	FirstSeen        time.Time
	LastSeen         time.Time
}

// UpsertATSRoute inserts or updates an ATS route record, returning its ID.
func (d *PostgresDB) UpsertATSRoute(ctx context.Context, r ATSRoute) (int, error) {
	var id int
	err := d.pool.QueryRow(ctx, `
		INSERT INTO ats_routes (designator, entry_point, exit_point, observation_count, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (designator, entry_point, exit_point) DO UPDATE SET
			observation_count = ats_routes.observation_count + 1,
			last_seen = EXCLUDED.last_seen
		RETURNING id
	`, r.Designator, r.EntryPoint, r.ExitPoint, r.ObservationCount, r.FirstSeen, r.LastSeen).Scan(&id)
	return id, err
}

// ListATSRoutes returns ATS routes observed at least minObservations times.
func (d *PostgresDB) ListATSRoutes(ctx context.Context, minObservations int) ([]ATSRoute, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, designator, entry_point, exit_point, observation_count, first_seen, last_seen
		FROM ats_routes WHERE observation_count >= $1
		ORDER BY observation_count DESC
	`, minObservations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []ATSRoute
	for rows.Next() {
		var r ATSRoute
		if err := rows.Scan(&r.ID, &r.Designator, &r.EntryPoint, &r.ExitPoint, &r.ObservationCount, &r.FirstSeen, &r.LastSeen); err != nil {
			return nil, fmt.Errorf("scan ats route: %w", err)
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// ATSRouteLeg is one sequenced element of a stored ERS.
type ATSRouteLeg struct {
	RouteID  int
	Sequence int
	Point    string
	Rules    string
	Speed    string
	Level    string
}

// InsertRouteLegs stores the full ordered element sequence for one parsed
// route, replacing any legs previously stored for that route ID.
func (d *PostgresDB) InsertRouteLegs(ctx context.Context, routeID int, legs []ATSRouteLeg) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM ats_route_legs WHERE route_id = $1`, routeID); err != nil {
		return fmt.Errorf("clear legs: %w", err)
	}
	for _, leg := range legs {
		_, err := tx.Exec(ctx, `
			INSERT INTO ats_route_legs (route_id, sequence, point_name, rules, speed, level)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, routeID, leg.Sequence, leg.Point, leg.Rules, leg.Speed, leg.Level)
		if err != nil {
			return fmt.Errorf("insert leg %d: %w", leg.Sequence, err)
		}
	}
	return tx.Commit(ctx)
}

// GetRouteLegs returns the stored element sequence for a route ID, in order.
func (d *PostgresDB) GetRouteLegs(ctx context.Context, routeID int) ([]ATSRouteLeg, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT route_id, sequence, point_name, rules, speed, level
		FROM ats_route_legs WHERE route_id = $1
		ORDER BY sequence
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var legs []ATSRouteLeg
	for rows.Next() {
		var leg ATSRouteLeg
		if err := rows.Scan(&leg.RouteID, &leg.Sequence, &leg.Point, &leg.Rules, &leg.Speed, &leg.Level); err != nil {
			return nil, fmt.Errorf("scan leg: %w", err)
		}
		legs = append(legs, leg)
	}
	return legs, rows.Err()
}

// ErrorDiagnostic is one stored ErrorRecord from a parse, joined to its
// ClickHouse parse_events row.
type ErrorDiagnostic struct {
	ID           int
	ParseEventID int64
	Message      string
	SpanStart    int
	SpanEnd      int
	CreatedAt    time.Time
}

// InsertErrorDiagnostics stores every ErrorRecord produced by one parse.
func (d *PostgresDB) InsertErrorDiagnostics(ctx context.Context, parseEventID int64, diags []ErrorDiagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, diag := range diags {
		_, err := tx.Exec(ctx, `
			INSERT INTO error_diagnostics (parse_event_id, message, span_start, span_end)
			VALUES ($1, $2, $3, $4)
		`, parseEventID, diag.Message, diag.SpanStart, diag.SpanEnd)
		if err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetErrorDiagnostics returns every stored diagnostic for a parse event.
func (d *PostgresDB) GetErrorDiagnostics(ctx context.Context, parseEventID int64) ([]ErrorDiagnostic, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, parse_event_id, message, span_start, span_end, created_at
		FROM error_diagnostics WHERE parse_event_id = $1
		ORDER BY span_start
	`, parseEventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diags []ErrorDiagnostic
	for rows.Next() {
		var diag ErrorDiagnostic
		if err := rows.Scan(&diag.ID, &diag.ParseEventID, &diag.Message, &diag.SpanStart, &diag.SpanEnd, &diag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, diag)
	}
	return diags, rows.Err()
}

// GoldenAnnotation is a reviewer's judgment on a stored parse event, used
// to build a regression corpus from real traffic.
type GoldenAnnotation struct {
	ParseEventID int64
	IsGolden     bool
	Annotation   string
	ExpectedJSON json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UpsertGoldenAnnotation inserts or updates a reviewer annotation.
func (d *PostgresDB) UpsertGoldenAnnotation(ctx context.Context, g GoldenAnnotation) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO golden_annotations (parse_event_id, is_golden, annotation, expected_json, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (parse_event_id) DO UPDATE SET
			is_golden = EXCLUDED.is_golden,
			annotation = EXCLUDED.annotation,
			expected_json = EXCLUDED.expected_json,
			updated_at = NOW()
	`, g.ParseEventID, g.IsGolden, g.Annotation, g.ExpectedJSON)
	return err
}

// GetGoldenAnnotation retrieves the annotation for a parse event, if any.
func (d *PostgresDB) GetGoldenAnnotation(ctx context.Context, parseEventID int64) (*GoldenAnnotation, error) {
	var g GoldenAnnotation
	err := d.pool.QueryRow(ctx, `
		SELECT parse_event_id, is_golden, annotation, expected_json, created_at, updated_at
		FROM golden_annotations WHERE parse_event_id = $1
	`, parseEventID).Scan(&g.ParseEventID, &g.IsGolden, &g.Annotation, &g.ExpectedJSON, &g.CreatedAt, &g.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGoldenEvents returns the IDs of all parse events marked golden.
func (d *PostgresDB) GetGoldenEvents(ctx context.Context) ([]int64, error) {
	rows, err := d.pool.Query(ctx, `SELECT parse_event_id FROM golden_annotations WHERE is_golden = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan golden event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetGolden marks or unmarks a parse event as golden.
func (d *PostgresDB) SetGolden(ctx context.Context, parseEventID int64, golden bool) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO golden_annotations (parse_event_id, is_golden, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (parse_event_id) DO UPDATE SET is_golden = EXCLUDED.is_golden, updated_at = NOW()
	`, parseEventID, golden)
	return err
}
