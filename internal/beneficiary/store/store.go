// Package store persists beneficiaries in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encantar/internal/beneficiary/models"
	"encantar/internal/platform/postgres"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/platform/tx"
)

const columns = `b.id, b.name, b.address, b.phone, b.email, b.notes, b.birth_date, b.active,
	b.created_at, b.updated_at, b.created_by_id, b.updated_by_id`

const deliveryCount = `(SELECT COUNT(*) FROM deliveries d WHERE d.beneficiary_id = b.id) AS delivery_count`

type PostgresStore struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// List returns one page of beneficiaries and the total matching the filter.
// The count and the page run concurrently.
func (s *PostgresStore) List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.WithCount, int, error) {
	var where postgres.Filter
	if len(f.Search) >= 2 {
		where.Search(f.Search, "b.name", "b.address", "b.phone", "b.email")
	}
	if active, ok := f.Active.Wanted(); ok {
		where.Add("b.active = ?", active)
	}
	if f.From != nil {
		where.Add("b.created_at >= ?", *f.From)
	}
	if f.To != nil {
		where.Add("b.created_at <= ?", *f.To)
	}

	var (
		rows  []models.WithCount
		total int
	)
	err := tx.Concurrent(ctx, s.db,
		func(ctx context.Context, exec sqlx.ExtContext) error {
			q := postgres.Rebind(`SELECT COUNT(*) FROM beneficiaries b` + where.Where())
			return sqlx.GetContext(ctx, exec, &total, q, where.Args()...)
		},
		func(ctx context.Context, exec sqlx.ExtContext) error {
			q := postgres.Rebind(`SELECT ` + columns + `, ` + deliveryCount + ` FROM beneficiaries b` +
				where.Where() + ` ORDER BY ` + p.OrderBy("b.") + ` LIMIT ? OFFSET ?`)
			args := append(append([]any{}, where.Args()...), p.Limit, p.Offset())
			return sqlx.SelectContext(ctx, exec, &rows, q, args...)
		},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list beneficiaries: %w", err)
	}
	return rows, total, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.WithCount, error) {
	var b models.WithCount
	q := `SELECT ` + columns + `, ` + deliveryCount + ` FROM beneficiaries b WHERE b.id = $1`
	err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &b, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find beneficiary: %w", err)
	}
	return &b, nil
}

// ExistsByNameAndAddress reports whether another beneficiary has the same
// name and address, ignoring case and surrounding space. exclude may be
// uuid.Nil.
func (s *PostgresStore) ExistsByNameAndAddress(ctx context.Context, name, address string, exclude uuid.UUID) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (
		SELECT 1 FROM beneficiaries
		WHERE LOWER(TRIM(name)) = LOWER(TRIM($1)) AND LOWER(TRIM(address)) = LOWER(TRIM($2)) AND id <> $3)`
	if err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &exists, q, name, address, exclude); err != nil {
		return false, fmt.Errorf("check duplicate beneficiary: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Create(ctx context.Context, b *models.Beneficiary) error {
	q := `INSERT INTO beneficiaries (id, name, address, phone, email, notes, birth_date, active,
			created_at, updated_at, created_by_id, updated_by_id)
		VALUES (:id, :name, :address, :phone, :email, :notes, :birth_date, :active,
			:created_at, :updated_at, :created_by_id, :updated_by_id)`
	if _, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, b); err != nil {
		return fmt.Errorf("insert beneficiary: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, b *models.Beneficiary) error {
	q := `UPDATE beneficiaries SET name = :name, address = :address, phone = :phone, email = :email,
			notes = :notes, birth_date = :birth_date, active = :active,
			updated_at = :updated_at, updated_by_id = :updated_by_id
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, b)
	if err != nil {
		return fmt.Errorf("update beneficiary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Search matches active beneficiaries by name, address or phone for
// autocomplete.
func (s *PostgresStore) Search(ctx context.Context, term string, limit int) ([]models.Summary, error) {
	var where postgres.Filter
	where.Add("b.active = ?", true)
	where.Search(term, "b.name", "b.address", "b.phone")
	q := postgres.Rebind(`SELECT b.id, b.name, b.address, b.phone FROM beneficiaries b` +
		where.Where() + ` ORDER BY b.name ASC LIMIT ?`)
	out := []models.Summary{}
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q, append(where.Args(), limit)...); err != nil {
		return nil, fmt.Errorf("search beneficiaries: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]models.Summary, error) {
	out := []models.Summary{}
	q := `SELECT id, name, address, phone FROM beneficiaries WHERE active ORDER BY name ASC`
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q); err != nil {
		return nil, fmt.Errorf("list active beneficiaries: %w", err)
	}
	return out, nil
}

// Top returns the active beneficiaries with the most deliveries.
func (s *PostgresStore) Top(ctx context.Context, limit int) ([]models.WithCount, error) {
	out := []models.WithCount{}
	q := `SELECT ` + columns + `, ` + deliveryCount + ` FROM beneficiaries b
		WHERE b.active ORDER BY delivery_count DESC, b.name ASC LIMIT $1`
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q, limit); err != nil {
		return nil, fmt.Errorf("top beneficiaries: %w", err)
	}
	return out, nil
}
