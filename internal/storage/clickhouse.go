// Package storage provides persistent storage for parsed Field 15 route
// descriptions.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB wraps a ClickHouse connection for parse-event storage.
type ClickHouseDB struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS parse_events (
			id              UInt64,
			trace_id        UUID,
			timestamp       DateTime64(3),
			rules           LowCardinality(String),
			adep            LowCardinality(String),
			ades            LowCardinality(String),
			raw_field15     String,
			ers_json        String,
			element_count   UInt32,
			error_count     UInt32,
			first_error     String,
			created_at      DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (rules, timestamp, id)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS ats_route_usage (
			id              UInt64,
			designator      LowCardinality(String),
			flight          LowCardinality(String),
			entry_point     LowCardinality(String),
			exit_point      LowCardinality(String),
			recorded_at     DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(recorded_at)
		ORDER BY (designator, recorded_at, id)`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	_ = d.conn.Exec(ctx, `ALTER TABLE parse_events ADD INDEX IF NOT EXISTS idx_raw_field15_bloom raw_field15 TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 1`)

	return nil
}

// CHParseEvent represents one completed Field 15 parse stored in ClickHouse.
type CHParseEvent struct {
	ID           uint64
	TraceID      uuid.UUID
	Timestamp    time.Time
	Rules        string
	ADEP         string
	ADES         string
	RawField15   string
	ERSJSON      string
	ElementCount uint32
	ErrorCount   uint32
	FirstError   string
	CreatedAt    time.Time
}

// CHInsertParams contains parameters for inserting a parse event.
type CHInsertParams struct {
	ID           uint64
	TraceID      uuid.UUID
	Timestamp    time.Time
	Rules        string
	ADEP         string
	ADES         string
	RawField15   string
	ERS          interface{}
	ElementCount uint32
	ErrorCount   uint32
	FirstError   string
}

// Insert stores a single parse event in ClickHouse.
func (d *ClickHouseDB) Insert(ctx context.Context, p CHInsertParams) error {
	ersJSON, err := json.Marshal(p.ERS)
	if err != nil {
		return fmt.Errorf("marshal ers: %w", err)
	}

	err = d.conn.Exec(ctx, `
		INSERT INTO parse_events (id, trace_id, timestamp, rules, adep, ades, raw_field15, ers_json, element_count, error_count, first_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.TraceID, p.Timestamp, p.Rules, p.ADEP, p.ADES, p.RawField15, string(ersJSON), p.ElementCount, p.ErrorCount, p.FirstError)
	if err != nil {
		return fmt.Errorf("insert parse event: %w", err)
	}

	return nil
}

// InsertBatch stores multiple parse events in ClickHouse efficiently.
func (d *ClickHouseDB) InsertBatch(ctx context.Context, events []CHInsertParams) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO parse_events (id, trace_id, timestamp, rules, adep, ades, raw_field15, ers_json, element_count, error_count, first_error)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range events {
		ersJSON, err := json.Marshal(p.ERS)
		if err != nil {
			return fmt.Errorf("marshal ers: %w", err)
		}

		err = batch.Append(p.ID, p.TraceID, p.Timestamp, p.Rules, p.ADEP, p.ADES, p.RawField15, string(ersJSON), p.ElementCount, p.ErrorCount, p.FirstError)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CHQueryParams contains filtering options for querying parse events.
type CHQueryParams struct {
	ID         uint64
	Rules      string
	ADEP       string
	ADES       string
	HasErrors  bool
	FullText   string // LIKE match on raw_field15.
	Limit      int
	Offset     int
	OrderBy    string
	OrderDesc  bool
}

// Query retrieves parse events matching the given parameters.
func (d *ClickHouseDB) Query(ctx context.Context, p CHQueryParams) ([]CHParseEvent, error) {
	var conditions []string
	var args []interface{}

	if p.ID != 0 {
		conditions = append(conditions, "id = ?")
		args = append(args, p.ID)
	}
	if p.Rules != "" {
		conditions = append(conditions, "rules = ?")
		args = append(args, p.Rules)
	}
	if p.ADEP != "" {
		conditions = append(conditions, "adep = ?")
		args = append(args, p.ADEP)
	}
	if p.ADES != "" {
		conditions = append(conditions, "ades = ?")
		args = append(args, p.ADES)
	}
	if p.HasErrors {
		conditions = append(conditions, "error_count > 0")
	}
	if p.FullText != "" {
		conditions = append(conditions, "raw_field15 LIKE ?")
		args = append(args, "%"+p.FullText+"%")
	}

	query := `SELECT id, trace_id, timestamp, rules, adep, ades, raw_field15, ers_json, element_count, error_count, first_error, created_at FROM parse_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	orderField := "id"
	if p.OrderBy != "" {
		switch p.OrderBy {
		case "timestamp", "rules", "error_count", "adep", "ades":
			orderField = p.OrderBy
		}
	}
	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderField, direction)

	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := d.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query parse events: %w", err)
	}
	defer rows.Close()

	var events []CHParseEvent
	for rows.Next() {
		var e CHParseEvent
		err := rows.Scan(&e.ID, &e.TraceID, &e.Timestamp, &e.Rules, &e.ADEP, &e.ADES,
			&e.RawField15, &e.ERSJSON, &e.ElementCount, &e.ErrorCount, &e.FirstError, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return events, nil
}

// GetByID retrieves a single parse event by ID.
func (d *ClickHouseDB) GetByID(ctx context.Context, id uint64) (*CHParseEvent, error) {
	events, err := d.Query(ctx, CHQueryParams{ID: id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// CHStats contains aggregate statistics about stored parse events.
type CHStats struct {
	TotalEvents     uint64
	ByRules         map[string]uint64
	WithErrors      uint64
	TopADEP         map[string]uint64
}

// GetStats returns statistics about stored parse events.
func (d *ClickHouseDB) GetStats(ctx context.Context) (*CHStats, error) {
	stats := &CHStats{
		ByRules: make(map[string]uint64),
		TopADEP: make(map[string]uint64),
	}

	row := d.conn.QueryRow(ctx, "SELECT count() FROM parse_events")
	if err := row.Scan(&stats.TotalEvents); err != nil {
		return nil, err
	}

	rows, err := d.conn.Query(ctx, "SELECT rules, count() FROM parse_events GROUP BY rules ORDER BY count() DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var rules string
		var count uint64
		if err := rows.Scan(&rules, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan rules stats: %w", err)
		}
		stats.ByRules[rules] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate rules stats: %w", err)
	}
	rows.Close()

	rows, err = d.conn.Query(ctx, "SELECT adep, count() FROM parse_events GROUP BY adep ORDER BY count() DESC LIMIT 20")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var adep string
		var count uint64
		if err := rows.Scan(&adep, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan adep stats: %w", err)
		}
		stats.TopADEP[adep] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate adep stats: %w", err)
	}
	rows.Close()

	row = d.conn.QueryRow(ctx, "SELECT count() FROM parse_events WHERE error_count > 0")
	if err := row.Scan(&stats.WithErrors); err != nil {
		return nil, err
	}

	return stats, nil
}

// Count returns the total number of parse events, optionally filtered by rules regime.
func (d *ClickHouseDB) Count(ctx context.Context, rules string) (uint64, error) {
	var count uint64
	var err error
	if rules != "" {
		row := d.conn.QueryRow(ctx, "SELECT count() FROM parse_events WHERE rules = ?", rules)
		err = row.Scan(&count)
	} else {
		row := d.conn.QueryRow(ctx, "SELECT count() FROM parse_events")
		err = row.Scan(&count)
	}
	return count, err
}

// CountByRules returns parse-event counts grouped by rules regime.
func (d *ClickHouseDB) CountByRules(ctx context.Context) (map[string]uint64, error) {
	counts := make(map[string]uint64)
	rows, err := d.conn.Query(ctx, "SELECT rules, count() FROM parse_events GROUP BY rules")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rules string
		var count uint64
		if err := rows.Scan(&rules, &count); err != nil {
			return nil, fmt.Errorf("scan count by rules: %w", err)
		}
		counts[rules] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count by rules: %w", err)
	}
	return counts, nil
}

// Distinct returns distinct values for a given column.
func (d *ClickHouseDB) Distinct(ctx context.Context, column string) ([]string, error) {
	validColumns := map[string]bool{
		"rules": true,
		"adep":  true,
		"ades":  true,
	}
	if !validColumns[column] {
		return nil, fmt.Errorf("invalid column: %s", column)
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM parse_events WHERE %s != '' ORDER BY %s", column, column, column)
	rows, err := d.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct values: %w", err)
	}
	return values, nil
}

// MaxID returns the maximum parse event ID in the table.
func (d *ClickHouseDB) MaxID(ctx context.Context) (uint64, error) {
	var maxID uint64
	row := d.conn.QueryRow(ctx, "SELECT max(id) FROM parse_events")
	if err := row.Scan(&maxID); err != nil {
		return 0, err
	}
	return maxID, nil
}
