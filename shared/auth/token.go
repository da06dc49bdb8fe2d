package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/golang-jwt/jwt/v5"
)

// Role is the caller class a token was issued for.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the authenticated caller: the account or admin id plus role.
type Principal struct {
	Subject string
	Role    Role
}

// Claims is the JWT payload.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

const minSecretLength = 16

// TokenManager issues and validates HS256 access tokens. Tokens are not
// stored; the signature and expiry are the whole session.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for subject with the given role.
func (m *TokenManager) Issue(subject string, role Role) (string, time.Time, error) {
	if subject == "" || !role.Valid() {
		return "", time.Time{}, fmt.Errorf("cannot issue token for subject %q role %q", subject, role)
	}
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Authenticate validates a raw token and returns the caller it was issued for.
// Every failure is reported as unauthorized.
func (m *TokenManager) Authenticate(token string) (Principal, error) {
	if token == "" {
		return Principal{}, apperr.New(apperr.KindUnauthorized, "missing token")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, apperr.Wrap(apperr.KindUnauthorized, err, "token expired")
		}
		return Principal{}, apperr.Wrap(apperr.KindUnauthorized, err, "invalid token")
	}
	if !parsed.Valid || claims.ExpiresAt == nil || claims.Subject == "" || !claims.Role.Valid() {
		return Principal{}, apperr.New(apperr.KindUnauthorized, "invalid token")
	}
	return Principal{Subject: claims.Subject, Role: claims.Role}, nil
}
