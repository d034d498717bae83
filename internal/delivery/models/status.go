package models

import (
	"slices"
	"strings"

	dErrors "encantar/pkg/domain-errors"
)

// Status is the lifecycle state of a delivery.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var Statuses = []Status{StatusPending, StatusCompleted, StatusCancelled}

func (s Status) IsValid() bool {
	return slices.Contains(Statuses, s)
}

// ParseStatus upper-cases raw and checks it against Statuses.
func ParseStatus(raw string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "status must be one of: PENDING, COMPLETED, CANCELLED")
	}
	return st, nil
}

// StatusRequest is the body of the status endpoints.
type StatusRequest struct {
	Status string `json:"status"`
}
