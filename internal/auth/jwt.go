package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lorrc/devexchange/internal/core/domain"
)

// ErrMalformedToken means the access token is not a decodable JWT.
var ErrMalformedToken = errors.New("malformed access token")

// Claims defines the structured data the backend stores in the JWT
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Username returns the subject, which the backend sets to the username.
func (c *Claims) Username() string {
	return c.Subject
}

// Inspect decodes the token without verifying its signature. The client
// never holds the signing key; the backend verifies every request.
func Inspect(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}
	return claims, nil
}

// Expired reports whether the token's exp claim is at or before now.
// Opaque tokens and tokens without exp are left to the backend.
func Expired(token string, now time.Time) bool {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now)
}
