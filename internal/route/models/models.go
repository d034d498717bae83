package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	deliverymodels "encantar/internal/delivery/models"
	itemmodels "encantar/internal/item/models"
	"encantar/pkg/dateutil"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/domain"
)

// Route groups the deliveries handed out on one service run.
type Route struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description *string        `db:"description" json:"description"`
	ServiceDate *dateutil.Date `db:"service_date" json:"service_date"`
	Notes       *string        `db:"notes" json:"notes"`
	domain.AuditFields
}

// WithCount is a route plus the number of deliveries assigned to it.
type WithCount struct {
	Route
	DeliveryCount int `db:"delivery_count" json:"delivery_count"`
}

// Detail is a route with its deliveries expanded.
type Detail struct {
	Route
	Deliveries []Delivery `json:"deliveries"`
}

// Delivery is one stop of a route.
type Delivery struct {
	ID          uuid.UUID             `db:"id" json:"id"`
	Status      deliverymodels.Status `db:"status" json:"status"`
	Notes       *string               `db:"notes" json:"notes"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
	Beneficiary Beneficiary           `db:"beneficiary" json:"beneficiary"`
	Items       []Line                `db:"-" json:"items"`
}

type Beneficiary struct {
	ID      uuid.UUID `db:"id" json:"id"`
	Name    string    `db:"name" json:"name"`
	Address string    `db:"address" json:"address"`
	Phone   *string   `db:"phone" json:"phone"`
}

// Line is one item handed out at a stop.
type Line struct {
	DeliveryID uuid.UUID       `db:"delivery_id" json:"-"`
	ItemID     uuid.UUID       `db:"item_id" json:"item_id"`
	Name       string          `db:"name" json:"name"`
	Unit       itemmodels.Unit `db:"unit" json:"unit"`
	Quantity   int             `db:"quantity" json:"quantity"`
}

func NewRoute(id uuid.UUID, name string, now time.Time, actor uuid.UUID) (*Route, error) {
	r := &Route{
		ID:          id,
		Name:        strings.TrimSpace(name),
		AuditFields: domain.NewAuditFields(now, actor),
	}
	if err := r.Check(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Route) Check() error {
	if n := utf8.RuneCountInString(r.Name); n < 3 || n > 100 {
		return dErrors.New(dErrors.CodeInvariantViolation, "name must be between 3 and 100 characters")
	}
	if r.Description != nil && utf8.RuneCountInString(*r.Description) > 2000 {
		return dErrors.New(dErrors.CodeInvariantViolation, "description must be at most 2000 characters")
	}
	if r.Notes != nil && utf8.RuneCountInString(*r.Notes) > 2000 {
		return dErrors.New(dErrors.CodeInvariantViolation, "notes must be at most 2000 characters")
	}
	return nil
}

var SortColumns = []string{"name", "service_date", "created_at", "updated_at"}

// MaxPageLimit is larger than the default so planners can load a season at once.
const MaxPageLimit = 500

// ListFilter bounds service_date inclusively; either end may be open.
type ListFilter struct {
	Search          string
	ServiceDateFrom *dateutil.Date
	ServiceDateTo   *dateutil.Date
}

// StatusResult reports how many deliveries a bulk status change touched.
type StatusResult struct {
	Updated int `json:"updated"`
}
