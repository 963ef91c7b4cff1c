package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed bearer token")
	ErrTokenExpired   = errors.New("bearer token expired")
)

// Claims mirrors the token payload issued by the auth provider. The client
// never verifies signatures (that is the backend's job); it only inspects
// expiry to fail fast before dialing the gateway.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a bearer token without signature verification.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// CheckExpiry returns ErrTokenExpired when the token's exp claim is in the
// past. Tokens without an exp claim are accepted.
func CheckExpiry(token string, now time.Time) error {
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return ErrTokenExpired
	}
	return nil
}
