// Package domain holds the small value types every module shares: parsed
// identifiers and the audit stamp carried by each record.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "encantar/pkg/domain-errors"
)

// ParseID parses an identifier received at a trust boundary (path, query or
// body). Empty, malformed and nil UUIDs are rejected with CodeInvalidInput
// naming field.
func ParseID(raw, field string) (uuid.UUID, error) {
	if raw == "" || len(raw) != 36 || strings.TrimSpace(raw) != raw {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be a valid id", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be a valid id", field)
	}
	return id, nil
}

// ParseOptionalID is ParseID for optional filters; empty input yields nil.
func ParseOptionalID(raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := ParseID(raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
