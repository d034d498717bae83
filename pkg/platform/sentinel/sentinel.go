package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into domain errors:
//   - ErrNotFound: row does not exist
//   - ErrAlreadyUsed: a unique value (name, login, invite token) is taken
//   - ErrConflict: a write collided with related rows (foreign key in use)
//   - ErrExpired: invite or token past its deadline
//   - ErrInvalidState: row is in the wrong state for the operation
//   - ErrUnavailable: backing service (redis, kafka) is not reachable
//
// Input validation problems go through pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
