package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS cars (
		id              BIGSERIAL PRIMARY KEY,
		run_id          UUID NOT NULL,
		captured_at     TIMESTAMPTZ,
		year            INT,
		make            TEXT,
		model           TEXT,
		license_plate   TEXT NOT NULL,
		color           TEXT,
		vin             TEXT,
		latitude        DOUBLE PRECISION,
		longitude       DOUBLE PRECISION,
		video_path      TEXT NOT NULL,
		state           TEXT NOT NULL,
		source_url      TEXT,
		success         BOOLEAN NOT NULL DEFAULT false,
		process_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		oracle_payload  JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_cars_captured_at ON cars(captured_at);`,
	`CREATE INDEX IF NOT EXISTS idx_cars_license_plate ON cars(license_plate);`,
	`CREATE INDEX IF NOT EXISTS idx_cars_make_model ON cars(make, model);`,
	`CREATE INDEX IF NOT EXISTS idx_cars_run_id ON cars(run_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
