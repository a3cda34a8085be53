package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	// vehicles принадлежит сервису автопарка; здесь создаётся только для локальной разработки.
	`CREATE TABLE IF NOT EXISTS vehicles (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		plate_number VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`ALTER TABLE vehicles ADD COLUMN IF NOT EXISTS tracker_id VARCHAR(64);`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_tracker_id ON vehicles (tracker_id);`,
	`CREATE TABLE IF NOT EXISTS tracker_mappings (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		vehicle_id UUID NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		tracker_id VARCHAR(64) NOT NULL,
		plate_number VARCHAR(32) NOT NULL,
		last_sync TIMESTAMPTZ NOT NULL,
		sync_status VARCHAR(20) NOT NULL DEFAULT 'synced',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tracker_mappings_vehicle_id ON tracker_mappings (vehicle_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tracker_mappings_tracker_id ON tracker_mappings (tracker_id);`,
	`CREATE TABLE IF NOT EXISTS vehicle_locations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		vehicle_id UUID NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		address TEXT,
		is_tracked BOOLEAN NOT NULL DEFAULT FALSE,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_vehicle_locations_vehicle_id ON vehicle_locations (vehicle_id);`,
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_tracker_mappings_updated_at') THEN
			CREATE TRIGGER trg_tracker_mappings_updated_at
				BEFORE UPDATE ON tracker_mappings
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
