package models

import (
	"strings"

	"encantar/internal/item/lines"
	"encantar/pkg/platform/validation"
)

type CreateRequest struct {
	Name        string       `json:"name" validate:"required,min=3,max=100"`
	Description string       `json:"description,omitempty" validate:"omitempty,max=500"`
	Active      *bool        `json:"active,omitempty"`
	Items       []lines.Line `json:"items"`
}

func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *CreateRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	return lines.Check(r.Items)
}

// UpdateRequest is a partial update. Items, when present, replace every line.
type UpdateRequest struct {
	Name        *string       `json:"name,omitempty" validate:"omitempty,min=3,max=100"`
	Description *string       `json:"description,omitempty" validate:"omitempty,max=500"`
	Active      *bool         `json:"active,omitempty"`
	Items       *[]lines.Line `json:"items,omitempty"`
}

func (r *UpdateRequest) Normalize() {
	for _, p := range []*string{r.Name, r.Description} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

func (r *UpdateRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.Items != nil {
		return lines.Check(*r.Items)
	}
	return nil
}

func (r *UpdateRequest) Apply(t *Template) {
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.Description != nil {
		t.Description = nil
		if *r.Description != "" {
			d := *r.Description
			t.Description = &d
		}
	}
	if r.Active != nil {
		t.Active = *r.Active
	}
}
