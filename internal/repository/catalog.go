package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

// ItemWrite is one create or update applied by the finalizer.
type ItemWrite struct {
	// TargetID selects the catalog item to update; nil creates a new item.
	TargetID *uuid.UUID
	Item     entity.MenuItem
}

// CatalogTx is the write side of the catalog, valid inside one transaction.
type CatalogTx interface {
	// ResolveMenu loads the menu with menuID, or finds or creates a menu named name when
	// menuID is nil. created reports whether a new menu was inserted.
	ResolveMenu(ctx context.Context, restaurantID string, menuID *uuid.UUID, name string) (menu entity.Menu, created bool, err error)
	DeleteMenuItems(ctx context.Context, menuID uuid.UUID) (int64, error)
	// WriteItems applies the writes with prepared statements. The returned slice holds
	// the per-item outcome at the index of each write (nil on success); err is set only
	// when the batch as a whole failed.
	WriteItems(ctx context.Context, menu entity.Menu, writes []ItemWrite) ([]error, error)
}

type CatalogRepository interface {
	FindByName(ctx context.Context, scope entity.CatalogScope, name string) ([]entity.CatalogItem, error)
	SearchByWords(ctx context.Context, scope entity.CatalogScope, words []string) ([]entity.CatalogItem, error)
	ListItems(ctx context.Context, menuID uuid.UUID) ([]entity.CatalogItem, error)
	GetMenu(ctx context.Context, id uuid.UUID) (*entity.Menu, error)
	WithTx(ctx context.Context, fn func(tx CatalogTx) error) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type catalogRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewCatalogRepository(db *DB, logger *slog.Logger) CatalogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogRepo{db: db, logger: logger}
}

const itemColumns = "id, menu_id, restaurant_id, doc, created_at, updated_at"

func scopeClause(scope entity.CatalogScope) (string, []any) {
	if scope.MenuID != nil {
		return "restaurant_id = ? AND menu_id = ?", []any{scope.RestaurantID, *scope.MenuID}
	}
	return "restaurant_id = ?", []any{scope.RestaurantID}
}

func (r *catalogRepo) FindByName(ctx context.Context, scope entity.CatalogScope, name string) ([]entity.CatalogItem, error) {
	where, args := scopeClause(scope)
	q := "SELECT " + itemColumns + " FROM menu_items WHERE " + where + " AND name_key = ? ORDER BY created_at, id"
	return r.queryItems(ctx, r.db, q, append(args, entity.NameKey(name))...)
}

func (r *catalogRepo) SearchByWords(ctx context.Context, scope entity.CatalogScope, words []string) ([]entity.CatalogItem, error) {
	if len(words) == 0 {
		return nil, nil
	}
	where, args := scopeClause(scope)
	likes := make([]string, len(words))
	for i, w := range words {
		likes[i] = "name_key LIKE ?"
		args = append(args, "%"+strings.ToLower(w)+"%")
	}
	q := "SELECT " + itemColumns + " FROM menu_items WHERE " + where +
		" AND (" + strings.Join(likes, " OR ") + ") ORDER BY created_at, id"
	return r.queryItems(ctx, r.db, q, args...)
}

func (r *catalogRepo) ListItems(ctx context.Context, menuID uuid.UUID) ([]entity.CatalogItem, error) {
	q := "SELECT " + itemColumns + " FROM menu_items WHERE menu_id = ? ORDER BY created_at, id"
	return r.queryItems(ctx, r.db, q, menuID)
}

func (r *catalogRepo) GetMenu(ctx context.Context, id uuid.UUID) (*entity.Menu, error) {
	m, err := getMenu(ctx, r.db, r.db.Rebind, id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *catalogRepo) WithTx(ctx context.Context, fn func(tx CatalogTx) error) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		return fn(&catalogTx{q: tx, rebind: r.db.Rebind, logger: r.logger})
	})
}

func (r *catalogRepo) queryItems(ctx context.Context, q querier, query string, args ...any) ([]entity.CatalogItem, error) {
	rows, err := q.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		r.logger.Error("catalog query failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.CatalogItem
	for rows.Next() {
		var (
			it  entity.CatalogItem
			doc string
		)
		if err := rows.Scan(&it.ID, &it.MenuID, &it.RestaurantID, &doc, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		if err := json.Unmarshal([]byte(doc), &it.Item); err != nil {
			return nil, fmt.Errorf("decode menu item %s: %w", it.ID, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func getMenu(ctx context.Context, q querier, rebind func(string) string, id uuid.UUID) (entity.Menu, error) {
	var m entity.Menu
	err := q.QueryRowContext(ctx,
		rebind("SELECT id, restaurant_id, name, created_at, updated_at FROM menus WHERE id = ?"), id,
	).Scan(&m.ID, &m.RestaurantID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("menu %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return m, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return m, nil
}

type catalogTx struct {
	q      querier
	rebind func(string) string
	logger *slog.Logger
}

func (t *catalogTx) ResolveMenu(ctx context.Context, restaurantID string, menuID *uuid.UUID, name string) (entity.Menu, bool, error) {
	if menuID != nil {
		m, err := getMenu(ctx, t.q, t.rebind, *menuID)
		if err != nil {
			return m, false, err
		}
		if m.RestaurantID != restaurantID {
			return m, false, fmt.Errorf("menu %s belongs to another restaurant: %w", m.ID, common.ErrNotFound)
		}
		return m, false, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Menu{}, false, fmt.Errorf("menu name is required without a target menu: %w", common.ErrInvalidInput)
	}
	var m entity.Menu
	err := t.q.QueryRowContext(ctx,
		t.rebind("SELECT id, restaurant_id, name, created_at, updated_at FROM menus WHERE restaurant_id = ? AND name_key = ? ORDER BY created_at LIMIT 1"),
		restaurantID, entity.NameKey(name),
	).Scan(&m.ID, &m.RestaurantID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err == nil {
		return m, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return m, false, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}

	ts := now()
	m = entity.Menu{ID: uuid.New(), RestaurantID: restaurantID, Name: name, CreatedAt: ts, UpdatedAt: ts}
	if _, err := t.q.ExecContext(ctx,
		t.rebind("INSERT INTO menus (id, restaurant_id, name, name_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"),
		m.ID, m.RestaurantID, m.Name, entity.NameKey(m.Name), m.CreatedAt, m.UpdatedAt,
	); err != nil {
		return m, false, fmt.Errorf("%w: insert menu: %v", common.ErrDatabase, err)
	}
	t.logger.Info("menu created", "menu_id", m.ID, "restaurant_id", restaurantID, "name", name)
	return m, true, nil
}

func (t *catalogTx) DeleteMenuItems(ctx context.Context, menuID uuid.UUID) (int64, error) {
	res, err := t.q.ExecContext(ctx, t.rebind("DELETE FROM menu_items WHERE menu_id = ?"), menuID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete menu items: %v", common.ErrDatabase, err)
	}
	n, _ := res.RowsAffected()
	t.logger.Info("menu items deleted", "menu_id", menuID, "count", n)
	return n, nil
}

func (t *catalogTx) WriteItems(ctx context.Context, menu entity.Menu, writes []ItemWrite) ([]error, error) {
	insert, err := t.q.PrepareContext(ctx, t.rebind(
		"INSERT INTO menu_items (id, menu_id, restaurant_id, name, name_key, kind, category, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	if err != nil {
		return nil, fmt.Errorf("%w: prepare insert: %v", common.ErrDatabase, err)
	}
	defer insert.Close()
	update, err := t.q.PrepareContext(ctx, t.rebind(
		"UPDATE menu_items SET name = ?, name_key = ?, kind = ?, category = ?, doc = ?, updated_at = ? WHERE id = ? AND restaurant_id = ?"))
	if err != nil {
		return nil, fmt.Errorf("%w: prepare update: %v", common.ErrDatabase, err)
	}
	defer update.Close()

	results := make([]error, len(writes))
	for i, w := range writes {
		doc, err := json.Marshal(w.Item)
		if err != nil {
			results[i] = fmt.Errorf("encode item: %w", err)
			continue
		}
		ts := now()
		if w.TargetID == nil {
			if _, err := insert.ExecContext(ctx,
				uuid.New(), menu.ID, menu.RestaurantID, w.Item.Name, entity.NameKey(w.Item.Name),
				string(w.Item.Kind), w.Item.Category, string(doc), ts, ts,
			); err != nil {
				return nil, fmt.Errorf("%w: insert item %q: %v", common.ErrDatabase, w.Item.Name, err)
			}
			continue
		}
		res, err := update.ExecContext(ctx,
			w.Item.Name, entity.NameKey(w.Item.Name), string(w.Item.Kind), w.Item.Category, string(doc), ts,
			*w.TargetID, menu.RestaurantID,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: update item %s: %v", common.ErrDatabase, *w.TargetID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			results[i] = fmt.Errorf("update target %s: %w", *w.TargetID, common.ErrNotFound)
		}
	}
	return results, nil
}

// compile-time interface checks
var (
	_ CatalogRepository = (*catalogRepo)(nil)
	_ CatalogTx         = (*catalogTx)(nil)
	_ querier           = (*sql.DB)(nil)
	_ querier           = (*sql.Tx)(nil)
)
