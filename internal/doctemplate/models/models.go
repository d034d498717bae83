package models

import (
	_ "embed"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/domain"
)

// DefaultName is the template created by seed.
const DefaultName = "Standard route sheet"

// DefaultContent is the Handlebars source of the seeded route sheet.
//
//go:embed default_sheet.hbs
var DefaultContent string

// Template is a printable document layout written in Handlebars.
type Template struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	Content     string    `db:"content" json:"content"`
	Active      bool      `db:"active" json:"active"`
	domain.AuditFields
}

// Summary omits the content for pickers.
type Summary struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
}

func NewTemplate(id uuid.UUID, name, content string, now time.Time, actor uuid.UUID) (*Template, error) {
	t := &Template{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Content:     strings.TrimSpace(content),
		Active:      true,
		AuditFields: domain.NewAuditFields(now, actor),
	}
	if err := t.Check(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Template) Check() error {
	if n := utf8.RuneCountInString(t.Name); n < 2 || n > 100 {
		return dErrors.New(dErrors.CodeInvariantViolation, "name must be between 2 and 100 characters")
	}
	if t.Description != nil && utf8.RuneCountInString(*t.Description) > 500 {
		return dErrors.New(dErrors.CodeInvariantViolation, "description must be at most 500 characters")
	}
	if utf8.RuneCountInString(t.Content) < 10 {
		return dErrors.New(dErrors.CodeInvariantViolation, "content must be at least 10 characters")
	}
	return nil
}

var SortColumns = []string{"name", "created_at", "updated_at"}

type ListFilter struct {
	Search string
	Active domain.ActiveFilter
}
