package infra

import (
	"fmt"

	"leavedesk/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// to create / update the two tables, then applies idempotent SQL patches that
// GORM cannot express (partial index on pending requests, FK cascade).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(
		&model.Account{},
		&model.VacationRequest{},
	); err != nil {
		return nil, fmt.Errorf("AutoMigrate: %w", err)
	}

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// applySchemaPatches runs idempotent DDL statements that AutoMigrate cannot
// fully handle on its own. Each statement uses IF NOT EXISTS / guarded DO
// blocks so re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Partial index backing the overlap check: only pending/approved rows
		// participate in the admissibility test.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_requests_active_range') THEN
		    CREATE INDEX idx_requests_active_range
		        ON vacation_requests (account_id, start_date, end_date)
		        WHERE status IN ('pending', 'approved');
		  END IF;
		END $$`,
		// Deleting an account removes all its requests.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_accounts_requests_cascade') THEN
		    ALTER TABLE vacation_requests
		      ADD CONSTRAINT fk_accounts_requests_cascade
		      FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE;
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
