package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"encantar/pkg/dateutil"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/domain"
)

// Beneficiary is a household or person that receives deliveries. Deleting a
// beneficiary only deactivates it so delivery history stays intact.
type Beneficiary struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Address   string         `db:"address" json:"address"`
	Phone     *string        `db:"phone" json:"phone"`
	Email     *string        `db:"email" json:"email"`
	Notes     *string        `db:"notes" json:"notes"`
	BirthDate *dateutil.Date `db:"birth_date" json:"birth_date"`
	Active    bool           `db:"active" json:"active"`
	domain.AuditFields
}

// WithCount is a beneficiary plus how many deliveries it has received.
type WithCount struct {
	Beneficiary
	DeliveryCount int `db:"delivery_count" json:"delivery_count"`
}

// Summary is the autocomplete view.
type Summary struct {
	ID      uuid.UUID `db:"id" json:"id"`
	Name    string    `db:"name" json:"name"`
	Address string    `db:"address" json:"address"`
	Phone   *string   `db:"phone" json:"phone"`
}

func NewBeneficiary(id uuid.UUID, name, address string, now time.Time, actor uuid.UUID) (*Beneficiary, error) {
	b := &Beneficiary{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Address:     strings.TrimSpace(address),
		Active:      true,
		AuditFields: domain.NewAuditFields(now, actor),
	}
	if err := b.Check(); err != nil {
		return nil, err
	}
	return b, nil
}

// Check enforces the invariants every stored beneficiary satisfies.
func (b *Beneficiary) Check() error {
	if n := utf8.RuneCountInString(b.Name); n < 2 || n > 100 {
		return dErrors.New(dErrors.CodeInvariantViolation, "name must be between 2 and 100 characters")
	}
	if n := utf8.RuneCountInString(b.Address); n < 5 || n > 200 {
		return dErrors.New(dErrors.CodeInvariantViolation, "address must be between 5 and 200 characters")
	}
	if b.Notes != nil && utf8.RuneCountInString(*b.Notes) > 500 {
		return dErrors.New(dErrors.CodeInvariantViolation, "notes must be at most 500 characters")
	}
	return nil
}

// Deactivate soft-deletes the beneficiary.
func (b *Beneficiary) Deactivate(now time.Time, actor uuid.UUID) error {
	if !b.Active {
		return dErrors.New(dErrors.CodeBadRequest, "beneficiary is already inactive")
	}
	b.Active = false
	b.Touch(now, actor)
	return nil
}

// SortColumns are the list orderings clients may request.
var SortColumns = []string{"name", "created_at", "updated_at"}

// ListFilter holds the parsed query of GET /api/beneficiaries.
type ListFilter struct {
	Search string
	Active domain.ActiveFilter
	From   *time.Time
	To     *time.Time
}
