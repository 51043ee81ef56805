// Package token issues and validates the wallet server's access JWTs:
// an HMAC secret, a fixed expiry, and golang-jwt/jwt/v5 for signing and
// parsing.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ethdenver2026/uristore/internal/apierr"
)

// Claims is the access token payload: {username, iat, exp, type:"access"}.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Type     string `json:"type"`
}

// Manager issues and validates HMAC-SHA256 access tokens. secret must
// be at least 32 bytes, enforced by NewManager.
type Manager struct {
	secret []byte
	expiry time.Duration
}

// NewManager builds a Manager. secret must be at least 32 bytes.
func NewManager(secret []byte, expiry time.Duration) (*Manager, error) {
	if len(secret) < 32 {
		return nil, apierr.New(apierr.ConfigError, "jwt secret must be at least 32 bytes")
	}
	return &Manager{secret: secret, expiry: expiry}, nil
}

// Issue signs a fresh access token for username.
func (m *Manager) Issue(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
		Username: username,
		Type:     "access",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies token, returning its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.Unauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Type != "access" {
		return nil, apierr.New(apierr.Unauthorized, "invalid access token")
	}
	return claims, nil
}
