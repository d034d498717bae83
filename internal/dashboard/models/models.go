package models

import (
	"time"

	"github.com/google/uuid"

	deliverymodels "encantar/internal/delivery/models"
)

// RecentLimit is how many deliveries the dashboard lists.
const RecentLimit = 5

type Stats struct {
	TotalBeneficiaries int              `json:"total_beneficiaries"`
	TotalItems         int              `json:"total_items"`
	TotalRoutes        int              `json:"total_routes"`
	TotalDeliveries    int              `json:"total_deliveries"`
	DeliveriesByStatus []StatusCount    `json:"deliveries_by_status"`
	RecentDeliveries   []RecentDelivery `json:"recent_deliveries"`
}

type StatusCount struct {
	Status deliverymodels.Status `db:"status" json:"status"`
	Total  int                   `db:"total" json:"total"`
}

type RecentDelivery struct {
	ID              uuid.UUID             `db:"id" json:"id"`
	BeneficiaryName string                `db:"beneficiary_name" json:"beneficiary_name"`
	RouteName       string                `db:"route_name" json:"route_name"`
	Status          deliverymodels.Status `db:"status" json:"status"`
	CreatedAt       time.Time             `db:"created_at" json:"created_at"`
}

// Totals are the headline counters.
type Totals struct {
	Beneficiaries int `db:"beneficiaries"`
	Items         int `db:"items"`
	Routes        int `db:"routes"`
	Deliveries    int `db:"deliveries"`
}

// FillStatuses returns one entry per known status in declaration order,
// zero where counts has none.
func FillStatuses(counts []StatusCount) []StatusCount {
	byStatus := make(map[deliverymodels.Status]int, len(counts))
	for _, c := range counts {
		byStatus[c.Status] = c.Total
	}
	out := make([]StatusCount, len(deliverymodels.Statuses))
	for i, st := range deliverymodels.Statuses {
		out[i] = StatusCount{Status: st, Total: byStatus[st]}
	}
	return out
}
