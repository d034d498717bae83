// Package store persists administrators and invites in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encantar/internal/auth/models"
	"encantar/internal/platform/postgres"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/platform/tx"
)

const adminColumns = `id, name, login, password_hash, active, created_at, updated_at`

// AdminStore persists administrators.
type AdminStore struct {
	db *sqlx.DB
}

func NewAdminStore(db *sqlx.DB) *AdminStore {
	return &AdminStore{db: db}
}

// Create inserts admin. A taken login returns sentinel.ErrAlreadyUsed.
func (s *AdminStore) Create(ctx context.Context, admin *models.Admin) error {
	query := `INSERT INTO admins (` + adminColumns + `)
		VALUES (:id, :name, :login, :password_hash, :active, :created_at, :updated_at)`
	_, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), query, admin)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (s *AdminStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	return s.findOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
}

func (s *AdminStore) FindByLogin(ctx context.Context, login string) (*models.Admin, error) {
	return s.findOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE login = $1`, login)
}

// FirstActive returns the oldest active admin, used as actor for seed and
// CLI writes.
func (s *AdminStore) FirstActive(ctx context.Context) (*models.Admin, error) {
	return s.findOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE active ORDER BY created_at ASC LIMIT 1`)
}

// IsActiveAdmin backs the RequireAuth middleware.
func (s *AdminStore) IsActiveAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool
	err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &active, `SELECT active FROM admins WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return active, nil
}

func (s *AdminStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &n, `SELECT COUNT(*) FROM admins`); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

func (s *AdminStore) findOne(ctx context.Context, query string, args ...any) (*models.Admin, error) {
	var admin models.Admin
	err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &admin, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return &admin, nil
}
