package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encantar/pkg/platform/tx"
)

// PostgresStore persists events in audit_events. Appends join the caller's
// transaction when one is in the context.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var details []byte
	if len(event.Details) > 0 {
		raw, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = raw
	}

	var actor any
	if event.ActorID != uuid.Nil {
		actor = event.ActorID
	}

	query := `
		INSERT INTO audit_events (id, action, entity, entity_id, actor_id, request_id, client_ip, device, details, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		string(event.Entity),
		event.EntityID,
		actor,
		event.RequestID,
		event.ClientIP,
		event.Device,
		details,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// DeleteBefore removes events recorded before cutoff.
func (s *PostgresStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete audit events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete audit events: %w", err)
	}
	return n, nil
}
