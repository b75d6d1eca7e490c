package repository

import (
	"context"
	"fmt"
)

// migrations run in order; each entry is applied once and recorded in schema_migrations.
// Statements are portable between Postgres and SQLite.
var migrations = [][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS menus (
			id            TEXT PRIMARY KEY,
			restaurant_id TEXT NOT NULL,
			name          TEXT NOT NULL,
			name_key      TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_menus_restaurant_name ON menus (restaurant_id, name_key)`,
		`CREATE TABLE IF NOT EXISTS menu_items (
			id            TEXT PRIMARY KEY,
			menu_id       TEXT NOT NULL REFERENCES menus(id) ON DELETE CASCADE,
			restaurant_id TEXT NOT NULL,
			name          TEXT NOT NULL,
			name_key      TEXT NOT NULL,
			kind          TEXT NOT NULL,
			category      TEXT NOT NULL,
			doc           TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_menu_items_restaurant_name ON menu_items (restaurant_id, name_key)`,
		`CREATE INDEX IF NOT EXISTS idx_menu_items_menu ON menu_items (menu_id)`,
	},
	2: {
		`CREATE TABLE IF NOT EXISTS import_jobs (
			id            TEXT PRIMARY KEY,
			status        TEXT NOT NULL,
			restaurant_id TEXT NOT NULL,
			menu_id       TEXT,
			menu_name     TEXT NOT NULL,
			replace_all   BOOLEAN NOT NULL,
			source_path   TEXT NOT NULL,
			payload       TEXT NOT NULL,
			progress      INTEGER NOT NULL DEFAULT 0,
			attempts      INTEGER NOT NULL DEFAULT 0,
			queued_at     TIMESTAMP NOT NULL,
			started_at    TIMESTAMP,
			completed_at  TIMESTAMP,
			result        TEXT,
			last_error    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_import_jobs_status ON import_jobs (status)`,
	},
}

// Migrate creates the schema_migrations table and applies pending migrations.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for version := 1; version < len(migrations); version++ {
		var exists bool
		err := db.QueryRowContext(ctx,
			db.Rebind("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)"),
			version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", version, err)
		}
		if exists {
			continue
		}

		db.logger.Info("applying migration", "version", version)
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		for _, stmt := range migrations[version] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to apply migration %d: %w", version, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			db.Rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)"),
			version, now(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
		db.logger.Info("migration applied", "version", version)
	}
	return nil
}
