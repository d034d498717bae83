package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditFields records when and by whom a row was created and last changed.
// Actor ids are nil for writes without an authenticated administrator.
type AuditFields struct {
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	CreatedByID *uuid.UUID `db:"created_by_id" json:"created_by_id"`
	UpdatedByID *uuid.UUID `db:"updated_by_id" json:"updated_by_id"`
}

// NewAuditFields stamps a new record.
func NewAuditFields(now time.Time, actor uuid.UUID) AuditFields {
	ref := ActorRef(actor)
	return AuditFields{CreatedAt: now, UpdatedAt: now, CreatedByID: ref, UpdatedByID: ref}
}

// Touch records a modification.
func (a *AuditFields) Touch(now time.Time, actor uuid.UUID) {
	a.UpdatedAt = now
	a.UpdatedByID = ActorRef(actor)
}

// ActorRef maps uuid.Nil to a NULL reference.
func ActorRef(actor uuid.UUID) *uuid.UUID {
	if actor == uuid.Nil {
		return nil
	}
	return &actor
}
