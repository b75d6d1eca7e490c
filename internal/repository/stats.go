package repository

import (
	"context"
	"fmt"
)

// Stats is a row-count snapshot used by health tooling.
type Stats struct {
	Menus         int64
	Items         int64
	JobsByStatus  map[string]int64
	SchemaVersion int
}

// Stats counts catalog rows and import jobs per status.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	s := Stats{JobsByStatus: map[string]int64{}}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menus`).Scan(&s.Menus); err != nil {
		return Stats{}, fmt.Errorf("count menus: %w", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&s.Items); err != nil {
		return Stats{}, fmt.Errorf("count menu items: %w", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&s.SchemaVersion); err != nil {
		return Stats{}, fmt.Errorf("read schema version: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM import_jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("scan job count: %w", err)
		}
		s.JobsByStatus[status] = n
	}
	return s, rows.Err()
}
