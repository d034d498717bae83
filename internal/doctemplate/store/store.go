// Package store persists document templates in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encantar/internal/doctemplate/models"
	"encantar/internal/platform/postgres"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/platform/tx"
)

const columns = `t.id, t.name, t.description, t.content, t.active, t.created_at, t.updated_at, t.created_by_id, t.updated_by_id`

type PostgresStore struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.Template, int, error) {
	var where postgres.Filter
	where.Search(f.Search, "t.name", "t.description")
	if active, ok := f.Active.Wanted(); ok {
		where.Add("t.active = ?", active)
	}

	var (
		rows  []models.Template
		total int
	)
	err := tx.Concurrent(ctx, s.db,
		func(ctx context.Context, exec sqlx.ExtContext) error {
			return sqlx.GetContext(ctx, exec, &total, postgres.Rebind(`SELECT COUNT(*) FROM document_templates t`+where.Where()), where.Args()...)
		},
		func(ctx context.Context, exec sqlx.ExtContext) error {
			q := postgres.Rebind(`SELECT ` + columns + ` FROM document_templates t` + where.Where() +
				` ORDER BY ` + p.OrderBy("t.") + ` LIMIT ? OFFSET ?`)
			return sqlx.SelectContext(ctx, exec, &rows, q, append(append([]any{}, where.Args()...), p.Limit, p.Offset())...)
		},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list document templates: %w", err)
	}
	return rows, total, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	var t models.Template
	err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &t, `SELECT `+columns+` FROM document_templates t WHERE t.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document template: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM document_templates WHERE LOWER(name) = LOWER($1) AND id <> $2)`
	if err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &exists, q, name, exclude); err != nil {
		return false, fmt.Errorf("check document template name: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Create(ctx context.Context, t *models.Template) error {
	q := `INSERT INTO document_templates (id, name, description, content, active, created_at, updated_at, created_by_id, updated_by_id)
		VALUES (:id, :name, :description, :content, :active, :created_at, :updated_at, :created_by_id, :updated_by_id)`
	if _, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, t); err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert document template: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, t *models.Template) error {
	q := `UPDATE document_templates SET name = :name, description = :description, content = :content,
			active = :active, updated_at = :updated_at, updated_by_id = :updated_by_id
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, t)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update document template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM document_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]models.Summary, error) {
	out := []models.Summary{}
	q := `SELECT id, name, description FROM document_templates WHERE active ORDER BY name ASC`
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q); err != nil {
		return nil, fmt.Errorf("list active document templates: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Search(ctx context.Context, name string, limit int) ([]models.Summary, error) {
	var where postgres.Filter
	where.Search(name, "t.name")
	q := postgres.Rebind(`SELECT t.id, t.name, t.description FROM document_templates t` + where.Where() +
		` ORDER BY t.name ASC LIMIT ?`)
	out := []models.Summary{}
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q, append(where.Args(), limit)...); err != nil {
		return nil, fmt.Errorf("search document templates: %w", err)
	}
	return out, nil
}
