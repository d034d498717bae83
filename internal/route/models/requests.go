package models

import (
	"strings"

	"encantar/pkg/dateutil"
	"encantar/pkg/platform/validation"
)

type CreateRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
	ServiceDate string `json:"service_date,omitempty"`
	Notes       string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.ServiceDate = strings.TrimSpace(r.ServiceDate)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *CreateRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	_, err := ParseServiceDate(r.ServiceDate)
	return err
}

// UpdateRequest is a partial update. An empty string clears an optional field.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=3,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	ServiceDate *string `json:"service_date,omitempty"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func (r *UpdateRequest) Normalize() {
	for _, p := range []*string{r.Name, r.Description, r.ServiceDate, r.Notes} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

func (r *UpdateRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.ServiceDate != nil {
		if _, err := ParseServiceDate(*r.ServiceDate); err != nil {
			return err
		}
	}
	return nil
}

func (r *UpdateRequest) Apply(rt *Route) {
	if r.Name != nil {
		rt.Name = *r.Name
	}
	if r.Description != nil {
		rt.Description = Optional(*r.Description)
	}
	if r.ServiceDate != nil {
		rt.ServiceDate, _ = ParseServiceDate(*r.ServiceDate)
	}
	if r.Notes != nil {
		rt.Notes = Optional(*r.Notes)
	}
}

// ParseServiceDate accepts YYYY-MM-DD or an ISO timestamp and keeps the
// calendar day. Empty input means no date.
func ParseServiceDate(raw string) (*dateutil.Date, error) {
	if raw == "" {
		return nil, nil
	}
	if len(raw) > len(dateutil.DateLayout) {
		raw = raw[:len(dateutil.DateLayout)]
	}
	t, err := dateutil.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	d := dateutil.NewDate(t)
	return &d, nil
}

func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
