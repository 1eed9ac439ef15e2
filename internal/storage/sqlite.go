// Package storage provides persistent storage for parsed Field 15 route
// descriptions. This file contains read-only SQLite functions for the
// offline review cache: a flattened local snapshot of ClickHouse's
// parse_events table for reviewers working without cluster access.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ParseEvent represents one cached, previously-parsed Field 15 string.
type ParseEvent struct {
	ID           int64
	Timestamp    time.Time
	Rules        string
	ADEP         string
	ADES         string
	RawField15   string
	ERSJSON      string
	ElementCount int
	ErrorCount   int
	IsGolden     bool
	Annotation   string
	ExpectedJSON string
}

// SQLiteDB wraps a SQLite database connection for read-only parse-event
// access. Used for offline review; new parses go to ClickHouse/PostgreSQL.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens an existing SQLite database in read-only mode.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// QueryParams contains filtering options for querying cached parse events.
type QueryParams struct {
	ID         int64  // Filter by specific parse event ID.
	Rules      string // Filter by rules regime (exact match).
	ADEP       string // Filter by ADEP (LIKE match).
	ADES       string // Filter by ADES (LIKE match).
	HasErrors  bool   // Only show events with at least one error.
	FullText   string // FTS5 full-text search on raw_field15.
	Limit      int    // Max results (default 100).
	Offset     int    // Pagination offset.
	OrderBy    string // Sort field (timestamp, rules, error_count).
	OrderDesc  bool   // Sort descending.
}

// Query retrieves cached parse events matching the given parameters.
func (d *SQLiteDB) Query(p QueryParams) ([]ParseEvent, error) {
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
		conditions = append(conditions, "adep LIKE ?")
		args = append(args, "%"+p.ADEP+"%")
	}
	if p.ADES != "" {
		conditions = append(conditions, "ades LIKE ?")
		args = append(args, "%"+p.ADES+"%")
	}
	if p.HasErrors {
		conditions = append(conditions, "error_count > 0")
	}

	var query string
	if p.FullText != "" {
		query = `SELECT e.id, e.timestamp, e.rules, e.adep, e.ades, e.raw_field15, e.ers_json,
				e.element_count, e.error_count, e.is_golden, e.annotation, e.expected_json
				FROM parse_events e
				JOIN parse_events_fts fts ON e.id = fts.rowid
				WHERE parse_events_fts MATCH ?`
		args = append([]interface{}{p.FullText}, args...)
		if len(conditions) > 0 {
			query += " AND " + strings.Join(conditions, " AND ")
		}
	} else {
		query = `SELECT id, timestamp, rules, adep, ades, raw_field15, ers_json,
				element_count, error_count, is_golden, annotation, expected_json
				FROM parse_events`
		if len(conditions) > 0 {
			query += " WHERE " + strings.Join(conditions, " AND ")
		}
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

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query parse events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []ParseEvent
	for rows.Next() {
		e, err := scanParseEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanParseEvent(row scannable) (ParseEvent, error) {
	var e ParseEvent
	var ts, annotation, expectedJSON sql.NullString
	var isGolden sql.NullInt64

	err := row.Scan(&e.ID, &ts, &e.Rules, &e.ADEP, &e.ADES, &e.RawField15, &e.ERSJSON,
		&e.ElementCount, &e.ErrorCount, &isGolden, &annotation, &expectedJSON)
	if err != nil {
		return e, fmt.Errorf("scan row: %w", err)
	}

	if ts.Valid {
		e.Timestamp, _ = time.Parse(time.RFC3339, ts.String)
	}
	if isGolden.Valid {
		e.IsGolden = isGolden.Int64 == 1
	}
	if annotation.Valid {
		e.Annotation = annotation.String
	}
	if expectedJSON.Valid {
		e.ExpectedJSON = expectedJSON.String
	}
	return e, nil
}

// Stats returns aggregate statistics about cached parse events.
type Stats struct {
	TotalEvents int
	ByRules     map[string]int
	WithErrors  int
}

// GetStats returns statistics about the cached parse events.
func (d *SQLiteDB) GetStats() (*Stats, error) {
	stats := &Stats{ByRules: make(map[string]int)}

	row := d.db.QueryRow("SELECT COUNT(*) FROM parse_events")
	if err := row.Scan(&stats.TotalEvents); err != nil {
		return nil, err
	}

	rows, err := d.db.Query("SELECT rules, COUNT(*) FROM parse_events GROUP BY rules ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var rules string
		var count int
		if err := rows.Scan(&rules, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByRules[rules] = count
	}
	_ = rows.Close()

	row = d.db.QueryRow("SELECT COUNT(*) FROM parse_events WHERE error_count > 0")
	if err := row.Scan(&stats.WithErrors); err != nil {
		return nil, err
	}

	return stats, nil
}

// Distinct returns distinct values for a given column.
func (d *SQLiteDB) Distinct(column string) ([]string, error) {
	validColumns := map[string]bool{
		"rules": true,
		"adep":  true,
		"ades":  true,
	}
	if !validColumns[column] {
		return nil, fmt.Errorf("invalid column: %s", column)
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM parse_events WHERE %s IS NOT NULL AND %s != '' ORDER BY %s", column, column, column, column)
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// GetByID retrieves a single cached parse event by ID.
func (d *SQLiteDB) GetByID(id int64) (*ParseEvent, error) {
	query := `SELECT id, timestamp, rules, adep, ades, raw_field15, ers_json,
			element_count, error_count, is_golden, annotation, expected_json
			FROM parse_events WHERE id = ?`

	e, err := scanParseEvent(d.db.QueryRow(query, id))
	if err != nil {
		if strings.Contains(err.Error(), sql.ErrNoRows.Error()) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// CountByRules returns parse event counts grouped by rules regime.
func (d *SQLiteDB) CountByRules() (map[string]int, error) {
	counts := make(map[string]int)
	rows, err := d.db.Query("SELECT rules, COUNT(*) FROM parse_events GROUP BY rules")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rules string
		var count int
		if err := rows.Scan(&rules, &count); err != nil {
			return nil, err
		}
		counts[rules] = count
	}
	return counts, rows.Err()
}

// Count returns the total number of cached parse events, optionally
// filtered by rules regime.
func (d *SQLiteDB) Count(rules string) (int, error) {
	var count int
	var err error
	if rules != "" {
		err = d.db.QueryRow("SELECT COUNT(*) FROM parse_events WHERE rules = ?", rules).Scan(&count)
	} else {
		err = d.db.QueryRow("SELECT COUNT(*) FROM parse_events").Scan(&count)
	}
	return count, err
}
