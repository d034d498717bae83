package models

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/domain"
)

// Unit is the measure an item is counted in.
type Unit string

const (
	UnitKG   Unit = "KG"
	UnitG    Unit = "G"
	UnitL    Unit = "L"
	UnitML   Unit = "ML"
	UnitUN   Unit = "UN"
	UnitCX   Unit = "CX"
	UnitPCT  Unit = "PCT"
	UnitLATA Unit = "LATA"
)

// Units lists every accepted unit.
var Units = []Unit{UnitKG, UnitG, UnitL, UnitML, UnitUN, UnitCX, UnitPCT, UnitLATA}

func (u Unit) IsValid() bool {
	return slices.Contains(Units, u)
}

// ParseUnit upper-cases raw and checks it against Units.
func ParseUnit(raw string) (Unit, error) {
	u := Unit(strings.ToUpper(strings.TrimSpace(raw)))
	if !u.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unit must be one of: KG, G, L, ML, UN, CX, PCT, LATA")
	}
	return u, nil
}

// Item is something that can be handed out in a delivery.
type Item struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	Unit        Unit      `db:"unit" json:"unit"`
	Active      bool      `db:"active" json:"active"`
	domain.AuditFields
}

// Summary is the picker view.
type Summary struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Unit Unit      `db:"unit" json:"unit"`
}

// WithUsage is an item plus the number of delivery lines that reference it.
type WithUsage struct {
	Item
	UsageCount int `db:"usage_count" json:"usage_count"`
}

// RecentDelivery is one delivery line of an item, with its context.
type RecentDelivery struct {
	DeliveryID      uuid.UUID `db:"delivery_id" json:"delivery_id"`
	Quantity        int       `db:"quantity" json:"quantity"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	BeneficiaryID   uuid.UUID `db:"beneficiary_id" json:"beneficiary_id"`
	BeneficiaryName string    `db:"beneficiary_name" json:"beneficiary_name"`
	RouteID         uuid.UUID `db:"route_id" json:"route_id"`
	RouteName       string    `db:"route_name" json:"route_name"`
}

// Stats summarizes how an item has been delivered.
type Stats struct {
	Item             *Item            `json:"item"`
	TotalDeliveries  int              `json:"total_deliveries"`
	TotalQuantity    int              `json:"total_quantity"`
	RecentDeliveries []RecentDelivery `json:"recent_deliveries"`
}

// Totals are the aggregate part of Stats.
type Totals struct {
	Deliveries int `db:"total_deliveries"`
	Quantity   int `db:"total_quantity"`
}

func NewItem(id uuid.UUID, name string, unit Unit, now time.Time, actor uuid.UUID) (*Item, error) {
	if unit == "" {
		unit = UnitUN
	}
	it := &Item{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Unit:        unit,
		Active:      true,
		AuditFields: domain.NewAuditFields(now, actor),
	}
	if err := it.Check(); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Item) Check() error {
	if n := utf8.RuneCountInString(it.Name); n < 1 || n > 100 {
		return dErrors.New(dErrors.CodeInvariantViolation, "name must be between 1 and 100 characters")
	}
	if !it.Unit.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unit must be one of: KG, G, L, ML, UN, CX, PCT, LATA")
	}
	if it.Description != nil && utf8.RuneCountInString(*it.Description) > 2000 {
		return dErrors.New(dErrors.CodeInvariantViolation, "description must be at most 2000 characters")
	}
	return nil
}

// SetActive moves the item to the target state; it is an error to already be
// there.
func (it *Item) SetActive(active bool, now time.Time, actor uuid.UUID) error {
	if it.Active == active {
		if active {
			return dErrors.New(dErrors.CodeBadRequest, "item is already active")
		}
		return dErrors.New(dErrors.CodeBadRequest, "item is already inactive")
	}
	it.Active = active
	it.Touch(now, actor)
	return nil
}

var SortColumns = []string{"name", "unit", "created_at"}

type ListFilter struct {
	Search string
	Active domain.ActiveFilter
	Unit   Unit
}
