// Package token issues and validates the HS256 access and refresh tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"encantar/internal/auth/models"
	dErrors "encantar/pkg/domain-errors"
	authmw "encantar/pkg/platform/middleware/auth"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are the JWT claims carried by both token kinds. Access and refresh
// tokens are signed with different secrets and tagged with their type.
type Claims struct {
	AdminID string `json:"admin_id"`
	Login   string `json:"login"`
	Type    string `json:"typ"`
	jwt.RegisteredClaims
}

// Service signs and validates tokens.
type Service struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

func New(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, issuer string) *Service {
	return &Service{
		accessKey:  []byte(accessSecret),
		refreshKey: []byte(refreshSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
		now:        time.Now,
	}
}

// Issue signs a new token pair for admin.
func (s *Service) Issue(admin *models.Admin) (*models.TokenPair, error) {
	access, err := s.sign(admin, TypeAccess, s.accessKey, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(admin, TypeRefresh, s.refreshKey, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

func (s *Service) sign(admin *models.Admin, typ string, key []byte, ttl time.Duration) (string, error) {
	now := s.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AdminID: admin.ID.String(),
		Login:   admin.Login,
		Type:    typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := t.SignedString(key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateAccessToken satisfies the RequireAuth middleware.
func (s *Service) ValidateAccessToken(tokenString string) (*authmw.Claims, error) {
	claims, err := s.validate(tokenString, TypeAccess, s.accessKey)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(claims.AdminID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &authmw.Claims{AdminID: id, Login: claims.Login}, nil
}

// ValidateRefreshToken returns the admin id of a valid refresh token.
func (s *Service) ValidateRefreshToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.validate(tokenString, TypeRefresh, s.refreshKey)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(claims.AdminID)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return id, nil
}

func (s *Service) validate(tokenString, typ string, key []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return key, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Type != typ {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}
