package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"encantar/pkg/platform/validation"
)

type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Login = strings.TrimSpace(r.Login)
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Login    string `json:"login" validate:"required,min=3,max=50,login"`
	Password string `json:"password" validate:"required,min=6,max=100"`
	Token    string `json:"token" validate:"required"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,phone"`
}

func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Login = strings.TrimSpace(r.Login)
	r.Token = strings.TrimSpace(r.Token)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = validation.DigitsOnly(r.Phone)
}

func (r *RegisterRequest) Validate() error {
	return validation.Struct(r)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type CreateInviteRequest struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,phone"`
}

func (r *CreateInviteRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = validation.DigitsOnly(r.Phone)
}

func (r *CreateInviteRequest) Validate() error {
	return validation.Struct(r)
}

// AdminResponse is the public view of an administrator.
type AdminResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Login     string    `json:"login"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToAdminResponse(a *Admin) AdminResponse {
	return AdminResponse{
		ID:        a.ID,
		Name:      a.Name,
		Login:     a.Login,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// TokenPair is a signed access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthResult is returned by login, register and refresh.
type AuthResult struct {
	User AdminResponse `json:"user"`
	TokenPair
}

type InviteResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	InviteURL string    `json:"invite_url"`
}

// InviteValidation is the public answer for a token lookup.
type InviteValidation struct {
	Valid         bool      `json:"valid"`
	ExpiresAt     time.Time `json:"expires_at"`
	RequiresEmail bool      `json:"requires_email"`
	RequiresPhone bool      `json:"requires_phone"`
	InvitedBy     string    `json:"invited_by,omitempty"`
}
