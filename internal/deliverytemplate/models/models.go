package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"encantar/internal/item/lines"
	"encantar/pkg/domain"
	dErrors "encantar/pkg/domain-errors"
)

// Template is a reusable basket of items.
type Template struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	domain.AuditFields
}

// View is a template with its lines resolved to item names and units.
type View struct {
	Template
	Items []lines.View `db:"-" json:"items"`
}

func NewTemplate(id uuid.UUID, name string, now time.Time, actor uuid.UUID) (*Template, error) {
	t := &Template{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Active:      true,
		AuditFields: domain.NewAuditFields(now, actor),
	}
	if err := t.Check(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Template) Check() error {
	if n := utf8.RuneCountInString(t.Name); n < 3 || n > 100 {
		return dErrors.New(dErrors.CodeInvariantViolation, "name must be between 3 and 100 characters")
	}
	if t.Description != nil && utf8.RuneCountInString(*t.Description) > 500 {
		return dErrors.New(dErrors.CodeInvariantViolation, "description must be at most 500 characters")
	}
	return nil
}

var SortColumns = []string{"name", "created_at", "updated_at"}

type ListFilter struct {
	Search string
	Active domain.ActiveFilter
}
