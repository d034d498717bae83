package models

import (
	"strings"

	"encantar/pkg/platform/validation"
)

type CreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
	Content     string `json:"content" validate:"required,min=10"`
	Active      *bool  `json:"active,omitempty"`
}

func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Content = strings.TrimSpace(r.Content)
}

func (r *CreateRequest) Validate() error {
	return validation.Struct(r)
}

type UpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Content     *string `json:"content,omitempty" validate:"omitempty,min=10"`
	Active      *bool   `json:"active,omitempty"`
}

func (r *UpdateRequest) Normalize() {
	for _, p := range []*string{r.Name, r.Description, r.Content} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

func (r *UpdateRequest) Validate() error {
	return validation.Struct(r)
}

// Apply copies supplied fields; content is expected to be sanitized already.
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
	if r.Content != nil {
		t.Content = *r.Content
	}
	if r.Active != nil {
		t.Active = *r.Active
	}
}
