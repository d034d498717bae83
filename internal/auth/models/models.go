package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "encantar/pkg/domain-errors"
)

// Admin is an operator account. Only administrators use the API.
type Admin struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Login        string    `db:"login"`
	PasswordHash string    `db:"password_hash"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// NewAdmin builds an active administrator. The password must already be hashed.
func NewAdmin(id uuid.UUID, name, login, passwordHash string, now time.Time) (*Admin, error) {
	name = strings.TrimSpace(name)
	login = strings.TrimSpace(login)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "admin name cannot be empty")
	}
	if login == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "admin login cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "admin password hash cannot be empty")
	}
	return &Admin{
		ID:           id,
		Name:         name,
		Login:        login,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Invite lets an administrator onboard another one. It is single use and
// short lived; when it names an email or phone the registrant must match it.
type Invite struct {
	ID          uuid.UUID  `db:"id"`
	Token       string     `db:"token"`
	Email       *string    `db:"email"`
	Phone       *string    `db:"phone"`
	ExpiresAt   time.Time  `db:"expires_at"`
	Used        bool       `db:"used"`
	UsedAt      *time.Time `db:"used_at"`
	CreatedByID uuid.UUID  `db:"created_by_id"`
	CreatedAt   time.Time  `db:"created_at"`
}

func NewInvite(id uuid.UUID, token string, email, phone *string, createdBy uuid.UUID, now time.Time, ttl time.Duration) (*Invite, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invite token cannot be empty")
	}
	if email == nil && phone == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email or phone is required to create an invite")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invite ttl must be positive")
	}
	return &Invite{
		ID:          id,
		Token:       token,
		Email:       email,
		Phone:       phone,
		ExpiresAt:   now.Add(ttl),
		CreatedByID: createdBy,
		CreatedAt:   now,
	}, nil
}

// IsActive reports whether the invite can still be redeemed at now.
func (i *Invite) IsActive(now time.Time) bool {
	return !i.Used && now.Before(i.ExpiresAt)
}

// CanRedeem checks the invite against the registrant's contact details.
func (i *Invite) CanRedeem(now time.Time, email, phone string) error {
	if i.Used {
		return dErrors.New(dErrors.CodeBadRequest, "invite has already been used")
	}
	if !now.Before(i.ExpiresAt) {
		return dErrors.New(dErrors.CodeBadRequest, "invite has expired")
	}
	if (i.Email != nil || i.Phone != nil) && email == "" && phone == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email or phone is required to validate the invite")
	}
	if i.Email != nil && !strings.EqualFold(*i.Email, email) {
		return dErrors.New(dErrors.CodeBadRequest, "email does not match the invite")
	}
	if i.Phone != nil && digits(*i.Phone) != digits(phone) {
		return dErrors.New(dErrors.CodeBadRequest, "phone does not match the invite")
	}
	return nil
}

// MarkUsed records redemption.
func (i *Invite) MarkUsed(now time.Time) {
	i.Used = true
	i.UsedAt = &now
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
