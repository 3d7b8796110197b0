package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lofo/internal/platform/middleware"
)

const defaultTokenTTL = 24 * time.Hour

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and validates HS256 bearer tokens. It implements
// middleware.JWTValidator.
type TokenCodec struct {
	signingKey []byte
	ttl        time.Duration
}

// NewTokenCodec builds a codec from the configured signing key.
func NewTokenCodec(signingKey string) *TokenCodec {
	return &TokenCodec{signingKey: []byte(signingKey), ttl: defaultTokenTTL}
}

// Issue creates a signed token for the actor. Used by the session layer and
// by tests; the core never mints tokens on its own.
func (c *TokenCodec) Issue(actor Actor, now time.Time) (string, error) {
	claims := tokenClaims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a bearer token.
func (c *TokenCodec) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return c.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return &middleware.JWTClaims{UserID: claims.Subject, Role: claims.Role}, nil
}
