// Package store persists delivery templates and their item lines in
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encantar/internal/deliverytemplate/models"
	"encantar/internal/item/lines"
	"encantar/internal/platform/postgres"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/platform/tx"
)

const columns = `t.id, t.name, t.description, t.active, t.created_at, t.updated_at, t.created_by_id, t.updated_by_id`

type PostgresStore struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.View, int, error) {
	var where postgres.Filter
	where.Search(f.Search, "t.name", "t.description")
	if active, ok := f.Active.Wanted(); ok {
		where.Add("t.active = ?", active)
	}

	var (
		rows  []models.View
		total int
	)
	err := tx.Concurrent(ctx, s.db,
		func(ctx context.Context, exec sqlx.ExtContext) error {
			return sqlx.GetContext(ctx, exec, &total, postgres.Rebind(`SELECT COUNT(*) FROM delivery_templates t`+where.Where()), where.Args()...)
		},
		func(ctx context.Context, exec sqlx.ExtContext) error {
			q := postgres.Rebind(`SELECT ` + columns + ` FROM delivery_templates t` + where.Where() +
				` ORDER BY ` + p.OrderBy("t.") + ` LIMIT ? OFFSET ?`)
			return sqlx.SelectContext(ctx, exec, &rows, q, append(append([]any{}, where.Args()...), p.Limit, p.Offset())...)
		},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list delivery templates: %w", err)
	}
	if err := s.attachLines(ctx, rows); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.View, error) {
	var v models.View
	err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &v, `SELECT `+columns+` FROM delivery_templates t WHERE t.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find delivery template: %w", err)
	}
	views := []models.View{v}
	if err := s.attachLines(ctx, views); err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *PostgresStore) attachLines(ctx context.Context, views []models.View) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	q, args, err := sqlx.In(`SELECT ti.template_id AS owner_id, ti.item_id, i.name, i.unit, ti.quantity
		FROM delivery_template_items ti
		JOIN items i ON i.id = ti.item_id
		WHERE ti.template_id IN (?)
		ORDER BY i.name ASC`, ids)
	if err != nil {
		return fmt.Errorf("build template lines lookup: %w", err)
	}
	var found []lines.View
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &found, postgres.Rebind(q), args...); err != nil {
		return fmt.Errorf("list template lines: %w", err)
	}
	grouped := lines.Group(found, ids)
	for i := range views {
		views[i].Items = grouped[views[i].ID]
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, t *models.Template) error {
	q := `INSERT INTO delivery_templates (id, name, description, active, created_at, updated_at, created_by_id, updated_by_id)
		VALUES (:id, :name, :description, :active, :created_at, :updated_at, :created_by_id, :updated_by_id)`
	if _, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, t); err != nil {
		return fmt.Errorf("insert delivery template: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, t *models.Template) error {
	q := `UPDATE delivery_templates SET name = :name, description = :description, active = :active,
			updated_at = :updated_at, updated_by_id = :updated_by_id
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, t)
	if err != nil {
		return fmt.Errorf("update delivery template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ReplaceLines swaps every line of a template. Call it inside a transaction.
func (s *PostgresStore) ReplaceLines(ctx context.Context, templateID uuid.UUID, ls []lines.Line) error {
	exec := tx.Executor(ctx, s.db)
	if _, err := exec.ExecContext(ctx, `DELETE FROM delivery_template_items WHERE template_id = $1`, templateID); err != nil {
		return fmt.Errorf("clear template lines: %w", err)
	}
	if len(ls) == 0 {
		return nil
	}
	values := make([]string, len(ls))
	args := make([]any, 0, len(ls)*3)
	for i, l := range ls {
		values[i] = "(?, ?, ?)"
		args = append(args, templateID, l.ItemID, l.Quantity)
	}
	q := postgres.Rebind(`INSERT INTO delivery_template_items (template_id, item_id, quantity) VALUES ` + strings.Join(values, ", "))
	if _, err := exec.ExecContext(ctx, q, args...); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert template lines: %w", err)
	}
	return nil
}

// Delete removes the template; its lines go with it through ON DELETE CASCADE.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM delivery_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete delivery template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
