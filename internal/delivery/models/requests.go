package models

import (
	"strings"

	"github.com/google/uuid"

	"encantar/internal/item/lines"
	"encantar/pkg/platform/validation"
)

type CreateRequest struct {
	BeneficiaryID uuid.UUID    `json:"beneficiary_id"`
	RouteID       uuid.UUID    `json:"route_id"`
	Notes         string       `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status        string       `json:"status,omitempty"`
	Items         []lines.Line `json:"items"`
}

func (r *CreateRequest) Normalize() {
	r.Notes = strings.TrimSpace(r.Notes)
	r.Status = strings.ToUpper(strings.TrimSpace(r.Status))
}

func (r *CreateRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.Status != "" {
		if _, err := ParseStatus(r.Status); err != nil {
			return err
		}
	}
	return lines.Check(r.Items)
}

// UpdateRequest is a partial update. Items, when present, replace every line.
type UpdateRequest struct {
	BeneficiaryID *uuid.UUID    `json:"beneficiary_id,omitempty"`
	RouteID       *uuid.UUID    `json:"route_id,omitempty"`
	Notes         *string       `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status        *string       `json:"status,omitempty"`
	Items         *[]lines.Line `json:"items,omitempty"`
}

func (r *UpdateRequest) Normalize() {
	if r.Notes != nil {
		*r.Notes = strings.TrimSpace(*r.Notes)
	}
	if r.Status != nil {
		*r.Status = strings.ToUpper(strings.TrimSpace(*r.Status))
	}
}

func (r *UpdateRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.Status != nil {
		if _, err := ParseStatus(*r.Status); err != nil {
			return err
		}
	}
	if r.Items != nil {
		return lines.Check(*r.Items)
	}
	return nil
}

func (r *UpdateRequest) Apply(d *Delivery) {
	if r.BeneficiaryID != nil {
		d.BeneficiaryID = *r.BeneficiaryID
	}
	if r.RouteID != nil {
		d.RouteID = *r.RouteID
	}
	if r.Notes != nil {
		d.Notes = nil
		if *r.Notes != "" {
			n := *r.Notes
			d.Notes = &n
		}
	}
	if r.Status != nil {
		d.Status = Status(*r.Status)
	}
}
