package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

// setupTestPostgres creates a test database connection.
// Returns nil if no PostgreSQL connection is available.
func setupTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "field15"
	}
	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "field15"
	}
	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		database = "field15"
	}

	ctx := context.Background()
	pg, err := OpenPostgres(ctx, PostgresConfig{
		Host:     host,
		Port:     5432,
		User:     user,
		Password: password,
		Database: database,
	})
	if err != nil {
		return nil
	}

	if err := pg.CreateSchema(ctx); err != nil {
		pg.Close()
		return nil
	}

	return pg
}

func TestUpsertWaypoint(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	now := time.Now()

	cleanup := func() { _, _ = pg.pool.Exec(ctx, "DELETE FROM waypoints WHERE name = 'ABARB'") }
	cleanup()
	defer cleanup()

	err := pg.UpsertWaypoint(ctx, Waypoint{
		Name: "ABARB", Latitude: 46.333, Longitude: -50.0, SourceCount: 1, FirstSeen: now, LastSeen: now,
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	err = pg.UpsertWaypoint(ctx, Waypoint{
		Name: "ABARB", Latitude: 46.333, Longitude: -50.0, SourceCount: 1, FirstSeen: now, LastSeen: now,
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := pg.GetWaypoint(ctx, "ABARB")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a waypoint, got nil")
	}
	if got.SourceCount != 2 {
		t.Errorf("source_count = %d, want 2 after two upserts", got.SourceCount)
	}
}

func TestUpsertATSRouteAndLegs(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	now := time.Now()

	cleanup := func() { _, _ = pg.pool.Exec(ctx, "DELETE FROM ats_routes WHERE designator = 'B9'") }
	cleanup()
	defer cleanup()

	id, err := pg.UpsertATSRoute(ctx, ATSRoute{
		Designator: "B9", EntryPoint: "ABC", ExitPoint: "DEF", ObservationCount: 1, FirstSeen: now, LastSeen: now,
	})
	if err != nil {
		t.Fatalf("upsert ats route failed: %v", err)
	}

	legs := []ATSRouteLeg{
		{RouteID: id, Sequence: 0, Point: "ABC", Rules: "IFR", Speed: "N0450", Level: "F350"},
		{RouteID: id, Sequence: 1, Point: "DEF", Rules: "IFR", Speed: "N0450", Level: "F350"},
	}
	if err := pg.InsertRouteLegs(ctx, id, legs); err != nil {
		t.Fatalf("insert legs failed: %v", err)
	}

	got, err := pg.GetRouteLegs(ctx, id)
	if err != nil {
		t.Fatalf("get legs failed: %v", err)
	}
	if len(got) != 2 || got[0].Point != "ABC" || got[1].Point != "DEF" {
		t.Errorf("legs = %+v, want ABC then DEF", got)
	}
}

func TestErrorDiagnosticsRoundTrip(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	const eventID int64 = 999999001

	cleanup := func() { _, _ = pg.pool.Exec(ctx, "DELETE FROM error_diagnostics WHERE parse_event_id = $1", eventID) }
	cleanup()
	defer cleanup()

	diags := []ErrorDiagnostic{
		{Message: "The element 'UNKNOWN' is an unrecognised Field 15 element", SpanStart: 10, SpanEnd: 17},
	}
	if err := pg.InsertErrorDiagnostics(ctx, eventID, diags); err != nil {
		t.Fatalf("insert diagnostics failed: %v", err)
	}

	got, err := pg.GetErrorDiagnostics(ctx, eventID)
	if err != nil {
		t.Fatalf("get diagnostics failed: %v", err)
	}
	if len(got) != 1 || got[0].Message != diags[0].Message {
		t.Errorf("diagnostics = %+v, want %+v", got, diags)
	}
}

func TestGoldenAnnotationRoundTrip(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	const eventID int64 = 999999002

	cleanup := func() { _, _ = pg.pool.Exec(ctx, "DELETE FROM golden_annotations WHERE parse_event_id = $1", eventID) }
	cleanup()
	defer cleanup()

	if err := pg.SetGolden(ctx, eventID, true); err != nil {
		t.Fatalf("set golden failed: %v", err)
	}

	got, err := pg.GetGoldenAnnotation(ctx, eventID)
	if err != nil {
		t.Fatalf("get annotation failed: %v", err)
	}
	if got == nil || !got.IsGolden {
		t.Errorf("annotation = %+v, want is_golden=true", got)
	}

	ids, err := pg.GetGoldenEvents(ctx)
	if err != nil {
		t.Fatalf("get golden events failed: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == eventID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %d among golden events %v", eventID, ids)
	}
}

func TestGetWaypointNotFound(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	got, err := pg.GetWaypoint(context.Background(), "NOSUCHPOINT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for non-existent waypoint, got %+v", got)
	}
}
