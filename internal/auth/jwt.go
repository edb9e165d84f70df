// Package auth issues and verifies operator tokens for run control.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid is returned for malformed, expired or wrongly signed tokens
	ErrInvalid = errors.New("invalid token")

	// ErrNoSecret is returned when signing without a configured secret
	ErrNoSecret = errors.New("auth secret not configured")
)

const issuer = "linkwatch"

// Claims identifies the operator a token was issued to
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens with a shared secret
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a signer for the given secret
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Generate issues a token for operator valid for ttl
func (s *Signer) Generate(operator string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	now := s.now()
	claims := Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies a token and returns its claims
func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalid
	}
	if claims, ok := token.Claims.(*Claims); ok {
		return claims, nil
	}
	return nil, ErrInvalid
}
