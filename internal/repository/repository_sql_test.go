package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type capturedStatement struct {
	sql  string
	vars []interface{}
}

// dryRunDB builds statements against the postgres dialect without a server
// and records the last statement rendered by the given callback processor.
func dryRunDB(t *testing.T, processor string) (*gorm.DB, *capturedStatement) {
	t.Helper()

	database, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=fleet dbname=fleet sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}

	captured := &capturedStatement{}
	record := func(tx *gorm.DB) {
		captured.sql = tx.Statement.SQL.String()
		captured.vars = append([]interface{}(nil), tx.Statement.Vars...)
	}

	switch processor {
	case "create":
		err = database.Callback().Create().After("gorm:create").Register("test:capture", record)
	case "update":
		err = database.Callback().Update().After("gorm:update").Register("test:capture", record)
	default:
		t.Fatalf("unknown processor %q", processor)
	}
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return database, captured
}

func TestUpsertTrackerMappingSQL(t *testing.T) {
	database, captured := dryRunDB(t, "create")
	store := NewFleetStore(database)

	vehicleID := uuid.New()
	syncedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := store.UpsertTrackerMapping(context.Background(), vehicleID.String(), "358899051234567", "ابج123", syncedAt); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	sql := captured.sql
	if !strings.HasPrefix(sql, `INSERT INTO "tracker_mappings"`) {
		t.Fatalf("unexpected statement: %s", sql)
	}
	if !strings.Contains(sql, `ON CONFLICT ("vehicle_id") DO UPDATE SET`) {
		t.Fatalf("expected conflict on vehicle_id, got: %s", sql)
	}
	for _, col := range []string{"tracker_id", "plate_number", "last_sync", "sync_status", "updated_at"} {
		assignment := `"` + col + `"="excluded"."` + col + `"`
		if !strings.Contains(sql, assignment) {
			t.Fatalf("expected assignment %s, got: %s", assignment, sql)
		}
	}
	for _, col := range []string{"vehicle_id", "created_at", "id"} {
		if strings.Contains(sql, `"`+col+`"="excluded"."`+col+`"`) {
			t.Fatalf("%s must not be overwritten on conflict: %s", col, sql)
		}
	}

	var sawVehicle, sawTracker bool
	for _, v := range captured.vars {
		switch val := v.(type) {
		case uuid.UUID:
			if val == vehicleID {
				sawVehicle = true
			}
		case string:
			if val == "358899051234567" {
				sawTracker = true
			}
		}
	}
	if !sawVehicle || !sawTracker {
		t.Fatalf("expected vehicle and tracker bound as vars, got %v", captured.vars)
	}
}

func TestUpdateLocationRowSQL(t *testing.T) {
	database, captured := dryRunDB(t, "update")
	store := NewFleetStore(database)

	rowID := uuid.New()
	addr := "Riyadh"
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	// A dry run affects no rows, so the not-found result is expected here.
	err := store.UpdateLocationRow(context.Background(), rowID.String(), 24.7, 46.6, &addr, true, at)
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound from dry run, got %v", err)
	}

	sql := captured.sql
	if !strings.HasPrefix(sql, `UPDATE "vehicle_locations" SET`) {
		t.Fatalf("unexpected statement: %s", sql)
	}
	for _, col := range []string{"latitude", "longitude", "address", "is_tracked", "last_updated"} {
		if !strings.Contains(sql, `"`+col+`"=`) {
			t.Fatalf("expected %s in SET list, got: %s", col, sql)
		}
	}
	if strings.Contains(sql, `"vehicle_id"=`) {
		t.Fatalf("vehicle_id must not be rewritten: %s", sql)
	}
	if !strings.Contains(sql, "WHERE id = ") {
		t.Fatalf("expected row filter, got: %s", sql)
	}
	if len(captured.vars) != 6 {
		t.Fatalf("expected 5 assignments and the row id, got %d vars: %v", len(captured.vars), captured.vars)
	}
	if captured.vars[len(captured.vars)-1] != rowID {
		t.Fatalf("expected row id as last var, got %v", captured.vars[len(captured.vars)-1])
	}
}
