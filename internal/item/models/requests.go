package models

import (
	"strings"

	"encantar/pkg/platform/validation"
)

type CreateRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Unit        string `json:"unit,omitempty"`
}

func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Unit = strings.ToUpper(strings.TrimSpace(r.Unit))
}

func (r *CreateRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.Unit != "" {
		if _, err := ParseUnit(r.Unit); err != nil {
			return err
		}
	}
	return nil
}

// UpdateRequest is a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Unit        *string `json:"unit,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

func (r *UpdateRequest) Normalize() {
	if r.Name != nil {
		*r.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		*r.Description = strings.TrimSpace(*r.Description)
	}
	if r.Unit != nil {
		*r.Unit = strings.ToUpper(strings.TrimSpace(*r.Unit))
	}
}

func (r *UpdateRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.Unit != nil {
		if _, err := ParseUnit(*r.Unit); err != nil {
			return err
		}
	}
	return nil
}

func (r *UpdateRequest) Apply(it *Item) {
	if r.Name != nil {
		it.Name = *r.Name
	}
	if r.Description != nil {
		it.Description = nil
		if *r.Description != "" {
			d := *r.Description
			it.Description = &d
		}
	}
	if r.Unit != nil {
		it.Unit = Unit(*r.Unit)
	}
	if r.Active != nil {
		it.Active = *r.Active
	}
}
