package models

import (
	"strings"

	"encantar/pkg/dateutil"
	"encantar/pkg/platform/validation"
)

type CreateRequest struct {
	Name      string         `json:"name" validate:"required,min=2,max=100"`
	Address   string         `json:"address" validate:"required,min=5,max=200"`
	Phone     string         `json:"phone,omitempty" validate:"omitempty,phone"`
	Email     string         `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Notes     string         `json:"notes,omitempty" validate:"omitempty,max=500"`
	BirthDate *dateutil.Date `json:"birth_date,omitempty"`
}

func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	r.Phone = validation.DigitsOnly(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *CreateRequest) Validate() error {
	return validation.Struct(r)
}

// UpdateRequest is a partial update: nil fields are left unchanged and an
// empty string clears an optional field.
type UpdateRequest struct {
	Name      *string        `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Address   *string        `json:"address,omitempty" validate:"omitempty,min=5,max=200"`
	Phone     *string        `json:"phone,omitempty" validate:"omitempty,phone"`
	Email     *string        `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Notes     *string        `json:"notes,omitempty" validate:"omitempty,max=500"`
	BirthDate *dateutil.Date `json:"birth_date,omitempty"`
	Active    *bool          `json:"active,omitempty"`
}

func (r *UpdateRequest) Normalize() {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(r.Name)
	trim(r.Address)
	trim(r.Notes)
	if r.Phone != nil {
		*r.Phone = validation.DigitsOnly(*r.Phone)
	}
	if r.Email != nil {
		*r.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
}

// Validate checks the supplied fields. An empty phone or email clears the
// field and skips its format rule. Clearing a required field is caught by
// Beneficiary.Check after Apply.
func (r *UpdateRequest) Validate() error {
	v := *r
	v.Phone = validation.NonEmpty(r.Phone)
	v.Email = validation.NonEmpty(r.Email)
	return validation.Struct(&v)
}

// Apply copies the supplied fields onto b.
func (r *UpdateRequest) Apply(b *Beneficiary) {
	if r.Name != nil {
		b.Name = *r.Name
	}
	if r.Address != nil {
		b.Address = *r.Address
	}
	if r.Phone != nil {
		b.Phone = optional(*r.Phone)
	}
	if r.Email != nil {
		b.Email = optional(*r.Email)
	}
	if r.Notes != nil {
		b.Notes = optional(*r.Notes)
	}
	if r.BirthDate != nil {
		b.BirthDate = r.BirthDate
	}
	if r.Active != nil {
		b.Active = *r.Active
	}
}

// Optional returns nil for the empty string.
func Optional(s string) *string {
	return optional(s)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
