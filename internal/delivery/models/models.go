package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"encantar/internal/item/lines"
	"encantar/pkg/dateutil"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/domain"
)

// Delivery is a basket of items handed to a beneficiary on a route.
type Delivery struct {
	ID            uuid.UUID `db:"id" json:"id"`
	BeneficiaryID uuid.UUID `db:"beneficiary_id" json:"beneficiary_id"`
	RouteID       uuid.UUID `db:"route_id" json:"route_id"`
	Notes         *string   `db:"notes" json:"notes"`
	Status        Status    `db:"status" json:"status"`
	domain.AuditFields
}

type BeneficiaryRef struct {
	ID      uuid.UUID `db:"id" json:"id"`
	Name    string    `db:"name" json:"name"`
	Address string    `db:"address" json:"address"`
	Phone   *string   `db:"phone" json:"phone"`
}

type RouteRef struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	ServiceDate *dateutil.Date `db:"service_date" json:"service_date"`
}

// View is a delivery with its beneficiary, route and item lines resolved.
type View struct {
	Delivery
	Beneficiary BeneficiaryRef `db:"beneficiary" json:"beneficiary"`
	Route       RouteRef       `db:"route" json:"route"`
	Items       []lines.View   `db:"-" json:"items"`
}

func NewDelivery(id, beneficiaryID, routeID uuid.UUID, status Status, now time.Time, actor uuid.UUID) (*Delivery, error) {
	if status == "" {
		status = StatusPending
	}
	d := &Delivery{
		ID:            id,
		BeneficiaryID: beneficiaryID,
		RouteID:       routeID,
		Status:        status,
		AuditFields:   domain.NewAuditFields(now, actor),
	}
	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Delivery) Check() error {
	if d.BeneficiaryID == uuid.Nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "beneficiary_id is required")
	}
	if d.RouteID == uuid.Nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "route_id is required")
	}
	if !d.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "status must be one of: PENDING, COMPLETED, CANCELLED")
	}
	if d.Notes != nil && utf8.RuneCountInString(*d.Notes) > 2000 {
		return dErrors.New(dErrors.CodeInvariantViolation, "notes must be at most 2000 characters")
	}
	return nil
}

var SortColumns = []string{"created_at", "updated_at", "status"}

// ListFilter narrows the delivery list. Search matches the beneficiary name;
// From and To bound created_at.
type ListFilter struct {
	RouteID       *uuid.UUID
	BeneficiaryID *uuid.UUID
	Status        Status
	Search        string
	From          *time.Time
	To            *time.Time
}
