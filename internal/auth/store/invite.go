package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encantar/internal/auth/models"
	"encantar/internal/platform/postgres"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/platform/tx"
)

const inviteColumns = `id, token, email, phone, expires_at, used, used_at, created_by_id, created_at`

// InviteStore persists invites.
type InviteStore struct {
	db *sqlx.DB
}

func NewInviteStore(db *sqlx.DB) *InviteStore {
	return &InviteStore{db: db}
}

func (s *InviteStore) Create(ctx context.Context, invite *models.Invite) error {
	query := `INSERT INTO invites (` + inviteColumns + `)
		VALUES (:id, :token, :email, :phone, :expires_at, :used, :used_at, :created_by_id, :created_at)`
	_, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), query, invite)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

// FindByToken returns the invite and the name of the admin who sent it.
func (s *InviteStore) FindByToken(ctx context.Context, token string) (*models.Invite, string, error) {
	var row struct {
		models.Invite
		CreatedByName string `db:"created_by_name"`
	}
	query := `SELECT i.id, i.token, i.email, i.phone, i.expires_at, i.used, i.used_at, i.created_by_id, i.created_at,
			a.name AS created_by_name
		FROM invites i JOIN admins a ON a.id = i.created_by_id
		WHERE i.token = $1`
	err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &row, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", sentinel.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("find invite: %w", err)
	}
	return &row.Invite, row.CreatedByName, nil
}

// FindActiveByCreator returns the creator's unused, unexpired invite.
func (s *InviteStore) FindActiveByCreator(ctx context.Context, adminID uuid.UUID, now time.Time) (*models.Invite, error) {
	var invite models.Invite
	query := `SELECT ` + inviteColumns + ` FROM invites
		WHERE created_by_id = $1 AND NOT used AND expires_at > $2
		ORDER BY created_at DESC LIMIT 1`
	err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &invite, query, adminID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active invite: %w", err)
	}
	return &invite, nil
}

// MarkUsed flips the invite to used. A concurrent redemption that got there
// first yields sentinel.ErrAlreadyUsed.
func (s *InviteStore) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE invites SET used = TRUE, used_at = $2 WHERE id = $1 AND NOT used`, id, usedAt)
	if err != nil {
		return fmt.Errorf("mark invite used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark invite used: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// DeleteExpiredBefore removes invites whose expiry is older than cutoff.
func (s *InviteStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invites WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge invites: %w", err)
	}
	return res.RowsAffected()
}
