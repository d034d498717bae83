// Package store persists items in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encantar/internal/item/models"
	"encantar/internal/platform/postgres"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/platform/tx"
)

const columns = `i.id, i.name, i.description, i.unit, i.active, i.created_at, i.updated_at, i.created_by_id, i.updated_by_id`

type PostgresStore struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.Item, int, error) {
	var where postgres.Filter
	where.Search(f.Search, "i.name", "i.description")
	if active, ok := f.Active.Wanted(); ok {
		where.Add("i.active = ?", active)
	}
	if f.Unit != "" {
		where.Add("i.unit = ?", string(f.Unit))
	}

	var (
		rows  []models.Item
		total int
	)
	err := tx.Concurrent(ctx, s.db,
		func(ctx context.Context, exec sqlx.ExtContext) error {
			return sqlx.GetContext(ctx, exec, &total, postgres.Rebind(`SELECT COUNT(*) FROM items i`+where.Where()), where.Args()...)
		},
		func(ctx context.Context, exec sqlx.ExtContext) error {
			q := postgres.Rebind(`SELECT ` + columns + ` FROM items i` + where.Where() +
				` ORDER BY ` + p.OrderBy("i.") + ` LIMIT ? OFFSET ?`)
			return sqlx.SelectContext(ctx, exec, &rows, q, append(append([]any{}, where.Args()...), p.Limit, p.Offset())...)
		},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	return rows, total, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var it models.Item
	err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &it, `SELECT `+columns+` FROM items i WHERE i.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &it, nil
}

// FindByIDs returns the items among ids that exist, in no particular order.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error) {
	out := []models.Item{}
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT `+columns+` FROM items i WHERE i.id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build item lookup: %w", err)
	}
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, postgres.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM items WHERE LOWER(name) = LOWER($1) AND id <> $2)`
	if err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &exists, q, name, exclude); err != nil {
		return false, fmt.Errorf("check item name: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Create(ctx context.Context, it *models.Item) error {
	q := `INSERT INTO items (id, name, description, unit, active, created_at, updated_at, created_by_id, updated_by_id)
		VALUES (:id, :name, :description, :unit, :active, :created_at, :updated_at, :created_by_id, :updated_by_id)`
	if _, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, it); err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, it *models.Item) error {
	q := `UPDATE items SET name = :name, description = :description, unit = :unit, active = :active,
			updated_at = :updated_at, updated_by_id = :updated_by_id
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, it)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes the item. Rows still referencing it surface as ErrConflict.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// InUse reports whether any delivery or delivery template references the item.
func (s *PostgresStore) InUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	q := `SELECT EXISTS (SELECT 1 FROM delivery_items WHERE item_id = $1)
		OR EXISTS (SELECT 1 FROM delivery_template_items WHERE item_id = $1)`
	if err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &used, q, id); err != nil {
		return false, fmt.Errorf("check item usage: %w", err)
	}
	return used, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]models.Summary, error) {
	out := []models.Summary{}
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out,
		`SELECT id, name, unit FROM items WHERE active ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Units(ctx context.Context) ([]models.Unit, error) {
	out := []models.Unit{}
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out,
		`SELECT DISTINCT unit FROM items ORDER BY unit ASC`); err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MostUsed(ctx context.Context, limit int) ([]models.WithUsage, error) {
	out := []models.WithUsage{}
	q := `SELECT ` + columns + `, COUNT(di.item_id) AS usage_count
		FROM items i LEFT JOIN delivery_items di ON di.item_id = i.id
		WHERE i.active
		GROUP BY i.id
		ORDER BY usage_count DESC, i.name ASC
		LIMIT $1`
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q, limit); err != nil {
		return nil, fmt.Errorf("most used items: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Search(ctx context.Context, name string, limit int) ([]models.Summary, error) {
	var where postgres.Filter
	where.Add("i.active = ?", true)
	where.Search(name, "i.name")
	q := postgres.Rebind(`SELECT i.id, i.name, i.unit FROM items i` + where.Where() + ` ORDER BY i.name ASC LIMIT ?`)
	out := []models.Summary{}
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q, append(where.Args(), limit)...); err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListByUnit(ctx context.Context, unit models.Unit) ([]models.Item, error) {
	out := []models.Item{}
	q := `SELECT ` + columns + ` FROM items i WHERE i.unit = $1 ORDER BY i.name ASC`
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q, string(unit)); err != nil {
		return nil, fmt.Errorf("list items by unit: %w", err)
	}
	return out, nil
}

// Totals counts the deliveries an item appears in and the quantity handed out.
func (s *PostgresStore) Totals(ctx context.Context, id uuid.UUID) (models.Totals, error) {
	var t models.Totals
	q := `SELECT COUNT(DISTINCT delivery_id) AS total_deliveries, COALESCE(SUM(quantity), 0) AS total_quantity
		FROM delivery_items WHERE item_id = $1`
	if err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &t, q, id); err != nil {
		return models.Totals{}, fmt.Errorf("item totals: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) RecentDeliveries(ctx context.Context, id uuid.UUID, limit int) ([]models.RecentDelivery, error) {
	out := []models.RecentDelivery{}
	q := `SELECT d.id AS delivery_id, di.quantity, d.status, d.created_at,
			b.id AS beneficiary_id, b.name AS beneficiary_name, r.id AS route_id, r.name AS route_name
		FROM delivery_items di
		JOIN deliveries d ON d.id = di.delivery_id
		JOIN beneficiaries b ON b.id = d.beneficiary_id
		JOIN routes r ON r.id = d.route_id
		WHERE di.item_id = $1
		ORDER BY d.created_at DESC
		LIMIT $2`
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q, id, limit); err != nil {
		return nil, fmt.Errorf("recent item deliveries: %w", err)
	}
	return out, nil
}
